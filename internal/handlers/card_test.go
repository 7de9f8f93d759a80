package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardgen/internal/card"
	"cardgen/internal/render"
	u "cardgen/internal/utils"
)

type fakeBuilder struct {
	err     error
	records []card.Record
}

func (f *fakeBuilder) Build(_ context.Context, rec card.Record) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.records = append(f.records, rec)
	return []byte("%PDF-1.7 " + rec.Name()), nil
}

var fixedNow = time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

func testCardService(b Builder) (*CardService, *fiber.App) {
	svc := NewCardService(u.DefaultConfig(), b, memoryStorage.New())
	svc.Now = func() time.Time { return fixedNow }

	app := fiber.New()
	app.Get("/", svc.HandleForm)
	app.Post("/v1/preview", svc.HandlePreview)
	app.Post("/v1/cards", svc.HandleGenerate)
	app.Get("/v1/cards/:id", svc.HandleDownload)
	return svc, app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHandleForm(t *testing.T) {
	_, app := testCardService(&fakeBuilder{})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, _ := io.ReadAll(resp.Body)
	html := string(body)
	assert.Contains(t, html, `value="03/01/2026"`, "issue date pre-filled with today")
	assert.Contains(t, html, `value="3/8/2026"`)
	assert.Contains(t, html, "(MM/DD/YYYY)")
	assert.Contains(t, html, "Player cards expire 7 days after issue date")
}

func TestHandlePreview(t *testing.T) {
	_, app := testCardService(&fakeBuilder{})

	status, body := postJSON(t, app, "/v1/preview", `{"issue_date":"01/05/2026"}`)
	assert.Equal(t, fiber.StatusOK, status)
	var ok PreviewResponse
	require.NoError(t, json.Unmarshal(body, &ok))
	assert.Equal(t, PreviewResponse{Valid: true, Expiration: "1/12/2026"}, ok)

	status, body = postJSON(t, app, "/v1/preview", `{"issue_date":"2026-01-05"}`)
	assert.Equal(t, fiber.StatusOK, status)
	var bad PreviewResponse
	require.NoError(t, json.Unmarshal(body, &bad))
	assert.False(t, bad.Valid)
	assert.Empty(t, bad.Expiration)
	assert.Contains(t, bad.Error, "MM/DD/YYYY")

	status, _ = postJSON(t, app, "/v1/preview", `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandlePreview_DateOfBirth(t *testing.T) {
	_, app := testCardService(&fakeBuilder{})

	tests := []struct {
		dob       string
		wantValid bool
		wantError string
	}{
		{"01/15/1990", true, ""},
		{"13/45/2020", false, "MM/DD/YYYY"},
		{"1990-01-15", false, "MM/DD/YYYY"},
		{"", false, ""},
	}
	for _, tc := range tests {
		body := fmt.Sprintf(`{"issue_date":"01/05/2026","dob":%q}`, tc.dob)
		status, data := postJSON(t, app, "/v1/preview", body)
		require.Equal(t, fiber.StatusOK, status, tc.dob)

		var res PreviewResponse
		require.NoError(t, json.Unmarshal(data, &res))
		assert.True(t, res.Valid, tc.dob)
		assert.Equal(t, tc.wantValid, res.DOBValid, tc.dob)
		if tc.wantError == "" {
			assert.Empty(t, res.DOBError, tc.dob)
		} else {
			assert.Contains(t, res.DOBError, tc.wantError, tc.dob)
		}
	}
}

func TestHandlePreview_ConfiguredLayout(t *testing.T) {
	cfg := u.DefaultConfig()
	cfg.Card.FormDateLayout = "2006-01-02"
	svc := NewCardService(cfg, &fakeBuilder{}, memoryStorage.New())
	svc.Now = func() time.Time { return fixedNow }
	app := fiber.New()
	app.Get("/", svc.HandleForm)
	app.Post("/v1/preview", svc.HandlePreview)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(page), "(YYYY-MM-DD)")
	assert.Contains(t, string(page), `value="2026-03-01"`)
	assert.NotContains(t, string(page), `\d{2}\/\d{2}`, "client side date checks go through the preview endpoint")

	status, data := postJSON(t, app, "/v1/preview", `{"issue_date":"2026-01-05","dob":"1990-01-15"}`)
	require.Equal(t, fiber.StatusOK, status)
	var res PreviewResponse
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, PreviewResponse{Valid: true, Expiration: "1/12/2026", DOBValid: true}, res)
}

func TestHandleGenerate_AndDownload(t *testing.T) {
	b := &fakeBuilder{}
	_, app := testCardService(b)

	status, body := postJSON(t, app, "/v1/cards", `{"name":"Jane Doe","dob":"01/15/1990","issue_date":"01/05/2026"}`)
	require.Equal(t, fiber.StatusCreated, status, string(body))

	var res CardResponse
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "jane_doe.pdf", res.Filename)
	assert.Equal(t, "01/12/2026", res.Expiration)
	assert.Equal(t, "/v1/cards/"+res.ID, res.DownloadURL)

	require.Len(t, b.records, 1)
	assert.Equal(t, "1990-01-15", b.records[0].DateOfBirth().Format("2006-01-02"))

	resp, err := app.Test(httptest.NewRequest("GET", res.DownloadURL, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="jane_doe.pdf"`, resp.Header.Get("Content-Disposition"))
	pdf, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "%PDF-1.7 Jane Doe", string(pdf))
}

func TestHandleGenerate_DefaultIssueDate(t *testing.T) {
	_, app := testCardService(&fakeBuilder{})

	status, body := postJSON(t, app, "/v1/cards", `{"name":"Jane Doe","dob":"01/15/1990"}`)
	require.Equal(t, fiber.StatusCreated, status)
	var res CardResponse
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "03/08/2026", res.Expiration)
}

func TestHandleGenerate_Validation(t *testing.T) {
	b := &fakeBuilder{}
	_, app := testCardService(b)

	tests := []struct {
		body string
		want string
	}{
		{`{"name":"  ","dob":"01/15/1990"}`, "name is required"},
		{`{"name":"Jane","dob":"1990-01-15"}`, "MM/DD/YYYY"},
		{`{"name":"Jane","dob":"01/15/1990","issue_date":"13/01/2026"}`, "13/01/2026"},
		{`{"name":"Jane"`, "Invalid request body"},
	}
	for _, tc := range tests {
		status, body := postJSON(t, app, "/v1/cards", tc.body)
		assert.Equal(t, fiber.StatusBadRequest, status, tc.body)
		assert.Contains(t, string(body), tc.want)
	}
	assert.Empty(t, b.records)
}

func TestHandleGenerate_BuildErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("render: %w", context.DeadlineExceeded), fiber.StatusRequestTimeout},
		{&render.Error{Engine: "chrome", Op: "print", Err: errors.New("crashed")}, fiber.StatusInternalServerError},
		{&card.MissingFieldsError{IDs: []string{card.FieldDOB}}, fiber.StatusInternalServerError},
		{errors.New("disk full"), fiber.StatusInternalServerError},
	}
	for _, tc := range tests {
		_, app := testCardService(&fakeBuilder{err: tc.err})
		status, _ := postJSON(t, app, "/v1/cards", `{"name":"Jane Doe","dob":"01/15/1990"}`)
		assert.Equal(t, tc.code, status, tc.err.Error())
	}
}

func TestHandleDownload_Unknown(t *testing.T) {
	svc, app := testCardService(&fakeBuilder{})

	id := xid.New().String()
	for _, path := range []string{"/v1/cards/not-an-id", "/v1/cards/" + id} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, path)
	}

	// a card whose name entry vanished still downloads under the fallback name
	require.NoError(t, svc.Downloads.Set(pdfKey(id), []byte("%PDF"), time.Minute))
	resp, err := app.Test(httptest.NewRequest("GET", "/v1/cards/"+id, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="player.pdf"`, resp.Header.Get("Content-Disposition"))
}
