package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
)

// Client talks to the remote prescription-analysis backend. It carries no
// credentials and does not retry; a failed call is reported to the user, who
// retries by re-submitting.
type Client struct {
	apiBase    string
	uploadBase string
	http       *http.Client
}

func New(apiBase, uploadBase string) *Client {
	if uploadBase == "" {
		uploadBase = apiBase
	}
	return &Client{
		apiBase:    strings.TrimRight(apiBase, "/"),
		uploadBase: strings.TrimRight(uploadBase, "/"),
		http:       &http.Client{},
	}
}

// APIURL joins an endpoint path onto the configured API base URL.
func (c *Client) APIURL(endpoint string) string {
	return c.apiBase + endpoint
}

// UploadURL builds the absolute URL of an uploaded prescription file.
func (c *Client) UploadURL(filename string) string {
	return c.uploadBase + "/uploads/" + url.PathEscape(filename)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.APIURL(endpoint), body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Register creates a user account.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.doJSON(ctx, http.MethodPost, "/register", reg, nil)
}

// Login exchanges credentials for the user record.
func (c *Client) Login(ctx context.Context, email, password string) (*Account, error) {
	payload := map[string]string{"email": email, "password": password}
	var out struct {
		User *Account `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/login", payload, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, fmt.Errorf("login response missing user record")
	}
	return out.User, nil
}

// ListUserPrescriptions fetches one user's prescriptions, newest first.
func (c *Client) ListUserPrescriptions(ctx context.Context, userID int) ([]*Prescription, error) {
	var out []*Prescription
	endpoint := "/dashboard?user_id=" + strconv.Itoa(userID)
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	for _, p := range out {
		p.Normalize()
	}
	return out, nil
}

// AnalyzeRequest is a prescription submission. File is optional; when set,
// FileName and FileType describe it.
type AnalyzeRequest struct {
	UserID   int
	Text     string
	FileName string
	FileType string
	File     io.Reader
}

// Analyze submits a prescription as multipart form data.
func (c *Client) Analyze(ctx context.Context, ar AnalyzeRequest) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("user_id", strconv.Itoa(ar.UserID)); err != nil {
		return err
	}
	if err := mw.WriteField("text", ar.Text); err != nil {
		return err
	}
	if ar.File != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, ar.FileName))
		hdr.Set("Content-Type", ar.FileType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, ar.File); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL("/analyze"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	return nil
}

// ListAllPrescriptions fetches every prescription for moderation.
func (c *Client) ListAllPrescriptions(ctx context.Context) ([]*Prescription, error) {
	var out []*Prescription
	if err := c.doJSON(ctx, http.MethodGet, "/admin/prescriptions", nil, &out); err != nil {
		return nil, err
	}
	for _, p := range out {
		p.Normalize()
	}
	return out, nil
}

// ListUsers fetches the admin user roster.
func (c *Client) ListUsers(ctx context.Context) ([]*UserSummary, error) {
	var out []*UserSummary
	if err := c.doJSON(ctx, http.MethodGet, "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePrescription replaces a prescription's status and analysis.
func (c *Client) UpdatePrescription(ctx context.Context, id int, status string, analysis *Analysis) error {
	payload := map[string]interface{}{"status": status, "analysis": analysis}
	return c.doJSON(ctx, http.MethodPut, "/admin/prescription/"+strconv.Itoa(id), payload, nil)
}

// ApprovePrescription approves a prescription with the backend's own analysis.
func (c *Client) ApprovePrescription(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodPost, "/admin/prescription/"+strconv.Itoa(id)+"/approve", map[string]interface{}{}, nil)
}

// RejectPrescription rejects a prescription with the given reason.
func (c *Client) RejectPrescription(ctx context.Context, id int, reason string) error {
	payload := map[string]string{"reason": reason}
	return c.doJSON(ctx, http.MethodPost, "/admin/prescription/"+strconv.Itoa(id)+"/reject", payload, nil)
}

// DeletePrescription removes a prescription and its stored file.
func (c *Client) DeletePrescription(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, "/prescription/"+strconv.Itoa(id), nil, nil)
}

// FetchUpload streams an uploaded file from the backend. The caller owns the
// response body.
func (c *Client) FetchUpload(ctx context.Context, filename string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.UploadURL(filename), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	return resp, nil
}
