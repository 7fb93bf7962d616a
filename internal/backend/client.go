// Package backend implements the REST client for the hospital backend.
// The backend is the single source of truth for patients, triage records,
// bed counts and bill totals; this client never derives what it can fetch.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

// Client is a typed HTTP client for the hospital backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds client configuration
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new backend client
func NewClient(config *ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError represents an error response from the backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Message)
}

// doRequest performs an HTTP request against the backend
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	return respBody, nil
}

// ListHospitals retrieves the hospital directory
func (c *Client) ListHospitals(ctx context.Context) ([]models.Hospital, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/hospitals", nil, nil)
	if err != nil {
		return nil, err
	}

	var hospitals []models.Hospital
	if err := json.Unmarshal(respBody, &hospitals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hospitals: %w", err)
	}

	return hospitals, nil
}

// GetHospital retrieves a single hospital by id
func (c *Client) GetHospital(ctx context.Context, id int64) (*models.Hospital, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/hospitals/%d", id), nil, nil)
	if err != nil {
		return nil, err
	}

	var hospital models.Hospital
	if err := json.Unmarshal(respBody, &hospital); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hospital: %w", err)
	}

	return &hospital, nil
}

// AdmitPatient performs a paramedic field admission. The backend creates
// the patient and the triage record and reserves a bed in one shot.
func (c *Client) AdmitPatient(ctx context.Context, hospitalID int64, patient *models.Patient, severity models.TriageColor, condition, vitals string) (*models.TriageTag, error) {
	query := url.Values{}
	query.Set("hospitalId", strconv.FormatInt(hospitalID, 10))
	query.Set("severity", string(severity))
	query.Set("condition", condition)
	query.Set("vitals", vitals)

	respBody, err := c.doRequest(ctx, http.MethodPost, "/paramedic/admit", query, patient)
	if err != nil {
		return nil, err
	}

	var tag models.TriageTag
	if err := json.Unmarshal(respBody, &tag); err != nil {
		return nil, fmt.Errorf("failed to unmarshal admission: %w", err)
	}

	return &tag, nil
}

// TriageFeed retrieves the live triage feed for a hospital
func (c *Client) TriageFeed(ctx context.Context, hospitalID int64) ([]models.TriageTag, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/triage/hospital/%d", hospitalID), nil, nil)
	if err != nil {
		return nil, err
	}

	var tags []models.TriageTag
	if err := json.Unmarshal(respBody, &tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal triage feed: %w", err)
	}

	return tags, nil
}

// UpdateTriageStatus applies an approved classification change
func (c *Client) UpdateTriageStatus(ctx context.Context, tagID int64, color models.TriageColor) error {
	query := url.Values{}
	query.Set("color", string(color))

	_, err := c.doRequest(ctx, http.MethodPatch, fmt.Sprintf("/triage/%d/status", tagID), query, nil)
	return err
}

// UpdatePatient updates patient demographics. The policy number rides as
// a query parameter; the backend uses it to re-link the insurance record.
func (c *Client) UpdatePatient(ctx context.Context, id int64, patient *models.Patient) (*models.Patient, error) {
	query := url.Values{}
	query.Set("policyNumber", patient.InsuranceNumber)

	respBody, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/patients/%d", id), query, patient)
	if err != nil {
		return nil, err
	}

	var updated models.Patient
	if err := json.Unmarshal(respBody, &updated); err != nil {
		return nil, fmt.Errorf("failed to unmarshal patient: %w", err)
	}

	return &updated, nil
}

// SearchInsurance searches insurance records by subscriber name
func (c *Client) SearchInsurance(ctx context.Context, name string) ([]models.InsuranceRecord, error) {
	query := url.Values{}
	query.Set("name", name)

	respBody, err := c.doRequest(ctx, http.MethodGet, "/insurance/search", query, nil)
	if err != nil {
		return nil, err
	}

	var records []models.InsuranceRecord
	if err := json.Unmarshal(respBody, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal insurance records: %w", err)
	}

	return records, nil
}

// BillPreview retrieves the current derived bill for a patient
func (c *Client) BillPreview(ctx context.Context, patientID int64) (*models.Bill, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/billing/preview/%d", patientID), nil, nil)
	if err != nil {
		return nil, err
	}

	return unmarshalBill(respBody)
}

// GenerateBill asks the backend to generate a bill for a patient
func (c *Client) GenerateBill(ctx context.Context, patientID int64) (*models.Bill, error) {
	respBody, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/billing/generate/%d", patientID), nil, nil)
	if err != nil {
		return nil, err
	}

	return unmarshalBill(respBody)
}

// AddBillItem appends a resource usage to a bill and returns the updated bill
func (c *Client) AddBillItem(ctx context.Context, billID, resourceID int64, quantity int) (*models.Bill, error) {
	query := url.Values{}
	query.Set("resourceId", strconv.FormatInt(resourceID, 10))
	query.Set("quantity", strconv.Itoa(quantity))

	respBody, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/billing/%d/items", billID), query, nil)
	if err != nil {
		return nil, err
	}

	return unmarshalBill(respBody)
}

// RemoveBillItem removes a line item from a bill and returns the updated bill
func (c *Client) RemoveBillItem(ctx context.Context, billID, itemID int64) (*models.Bill, error) {
	respBody, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/billing/%d/items/%d", billID, itemID), nil, nil)
	if err != nil {
		return nil, err
	}

	return unmarshalBill(respBody)
}

// Discharge finalizes a patient's bill and releases their bed
func (c *Client) Discharge(ctx context.Context, patientID int64) error {
	_, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/billing/discharge/%d", patientID), nil, nil)
	return err
}

func unmarshalBill(data []byte) (*models.Bill, error) {
	var bill models.Bill
	if err := json.Unmarshal(data, &bill); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bill: %w", err)
	}
	return &bill, nil
}
