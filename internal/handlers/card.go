package handlers

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/xid"

	"cardgen/internal/card"
	"cardgen/internal/render"
	u "cardgen/internal/utils"
)

//go:embed templates/form.html
var templatesFS embed.FS

var formTemplate = template.Must(template.ParseFS(templatesFS, "templates/form.html"))

// Builder renders a finished card into memory.
type Builder interface {
	Build(ctx context.Context, rec card.Record) ([]byte, error)
}

// CardRequest is the body of POST /v1/cards. Dates use the form layout.
type CardRequest struct {
	Name      string `json:"name" form:"name"`
	DOB       string `json:"dob" form:"dob"`
	IssueDate string `json:"issue_date" form:"issue_date"`
}

// CardResponse describes a generated card waiting to be downloaded.
type CardResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"download_url"`
	Expiration  string `json:"expiration"`
}

// PreviewRequest is the body of POST /v1/preview. DOB is optional and only
// checked when present.
type PreviewRequest struct {
	IssueDate string `json:"issue_date" form:"issue_date"`
	DOB       string `json:"dob,omitempty" form:"dob"`
}

// PreviewResponse reports the expiration date for a candidate issue date,
// and whether the date of birth parses when one was sent.
type PreviewResponse struct {
	Valid      bool   `json:"valid"`
	Expiration string `json:"expiration,omitempty"`
	Error      string `json:"error,omitempty"`
	DOBValid   bool   `json:"dob_valid"`
	DOBError   string `json:"dob_error,omitempty"`
}

// CardService serves the interactive card form.
type CardService struct {
	Config    *u.Config
	Builder   Builder
	Downloads fiber.Storage
	// Now is the clock used for the default issue date.
	Now func() time.Time
}

// NewCardService creates a CardService that stores generated cards in store.
func NewCardService(cfg u.Config, b Builder, store fiber.Storage) *CardService {
	return &CardService{
		Config:    &cfg,
		Builder:   b,
		Downloads: store,
		Now:       time.Now,
	}
}

type formData struct {
	DateFormat string
	Today      string
	Expiration string
	Validity   int
}

// HandleForm renders the card form with the issue date set to today.
func (svc *CardService) HandleForm(c *fiber.Ctx) error {
	layout := svc.Config.Card.FormDateLayout
	today := card.Today(svc.Now())

	var buf bytes.Buffer
	err := formTemplate.Execute(&buf, formData{
		DateFormat: card.DisplayLayout(layout),
		Today:      today.Format(layout),
		Expiration: card.Expiration(today).Format("1/2/2006"),
		Validity:   card.ValidityDays,
	})
	if err != nil {
		u.Error("Form rendering failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Form rendering failed")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

// HandlePreview computes the expiration for the submitted issue date and
// checks the date of birth with the same layout generation uses. Invalid
// input is not an HTTP error; the form shows the message inline.
func (svc *CardService) HandlePreview(c *fiber.Ctx) error {
	var req PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	layout := svc.Config.Card.FormDateLayout

	var res PreviewResponse
	if exp, err := card.PreviewExpiration(req.IssueDate, layout); err != nil {
		res.Error = err.Error()
	} else {
		res.Valid, res.Expiration = true, exp
	}
	if strings.TrimSpace(req.DOB) != "" {
		if _, err := card.ParseDateLayout(req.DOB, layout); err != nil {
			res.DOBError = err.Error()
		} else {
			res.DOBValid = true
		}
	}
	return c.JSON(res)
}

// parseRecord validates a CardRequest using the strict form layout.
func (svc *CardService) parseRecord(req CardRequest) (card.Record, error) {
	layout := svc.Config.Card.FormDateLayout

	if strings.TrimSpace(req.Name) == "" {
		return card.Record{}, card.ErrEmptyName
	}
	dob, err := card.ParseDateLayout(req.DOB, layout)
	if err != nil {
		return card.Record{}, err
	}
	var issue any
	if strings.TrimSpace(req.IssueDate) != "" {
		if issue, err = card.ParseDateLayout(req.IssueDate, layout); err != nil {
			return card.Record{}, err
		}
	}
	return card.NewRecord(req.Name, dob, issue, svc.Now())
}

// HandleGenerate builds a card and parks it in the download store.
func (svc *CardService) HandleGenerate(c *fiber.Ctx) error {
	var req CardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	rec, err := svc.parseRecord(req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	pdf, err := svc.Builder.Build(c.UserContext(), rec)
	if err != nil {
		return buildError(err)
	}

	id := xid.New().String()
	filename := rec.Filename()
	ttl := svc.Config.Downloads.TTL
	if err := svc.Downloads.Set(pdfKey(id), pdf, ttl); err != nil {
		u.Error("Storing card failed", "id", id, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Storing card failed")
	}
	if err := svc.Downloads.Set(nameKey(id), []byte(filename), ttl); err != nil {
		u.Error("Storing card failed", "id", id, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Storing card failed")
	}

	u.Info("Card generated",
		"id", id,
		"filename", filename,
		"expires", rec.ExpirationDate().Format(svc.Config.Card.DateLayout),
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
	)

	return c.Status(fiber.StatusCreated).JSON(CardResponse{
		ID:          id,
		Filename:    filename,
		DownloadURL: "/v1/cards/" + id,
		Expiration:  rec.ExpirationDate().Format(svc.Config.Card.FormDateLayout),
	})
}

// HandleDownload streams a stored card as an attachment.
func (svc *CardService) HandleDownload(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := xid.FromString(id); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Card not found")
	}

	pdf, err := svc.Downloads.Get(pdfKey(id))
	if err != nil {
		u.Error("Reading card failed", "id", id, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Reading card failed")
	}
	if pdf == nil {
		return fiber.NewError(fiber.StatusNotFound, "Card not found or expired")
	}

	filename := card.FallbackSlug + ".pdf"
	if name, err := svc.Downloads.Get(nameKey(id)); err == nil && len(name) > 0 {
		filename = string(name)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}

func pdfKey(id string) string  { return "card:" + id + ":pdf" }
func nameKey(id string) string { return "card:" + id + ":name" }

// buildError maps a generation failure onto an HTTP error.
func buildError(err error) error {
	var mfe *card.MissingFieldsError
	var rerr *render.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		u.Error("Card generation timeout", "error", err)
		return fiber.NewError(fiber.StatusRequestTimeout, "Card rendering took too long")
	case errors.As(err, &mfe):
		u.Error("Template is broken", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	case errors.As(err, &rerr):
		u.Error("Card rendering failed", "engine", rerr.Engine, "op", rerr.Op, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Card rendering failed")
	}
	u.Error("Card generation failed", "error", err)
	return fiber.NewError(fiber.StatusInternalServerError, "Card generation failed")
}
