// ABOUTME: Upload pipeline turning a stage screenshot into a recorded message
// ABOUTME: Runs hash check, OCR, parsing, template check and resolution as one atomic unit
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/models"
	"github.com/harperreed/canvass/ocr"
	"github.com/harperreed/canvass/resolve"
	"github.com/harperreed/canvass/storage"
	"github.com/harperreed/canvass/templates"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Defaults for Options.
const (
	DefaultOCRTimeout     = 30 * time.Second
	DefaultMaxUploadBytes = 10 << 20
	maxContactNumberLen   = 50
	headerExcerptLen      = 100
)

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

// Deps are the collaborators of an Uploader.
type Deps struct {
	Store    *db.Store
	Blobs    storage.Store
	Engine   ocr.Engine // nil disables OCR; every upload then reads as empty text
	Parser   *ocr.Parser
	Scorer   templates.Scorer
	Resolver *resolve.Resolver
	Logger   *zap.Logger
	Now      func() time.Time
}

// Options tunes an Uploader. Zero values take the defaults.
type Options struct {
	OCRTimeout     time.Duration
	MaxUploadBytes int64
}

// Uploader records stage screenshots and manages the messages they produce.
type Uploader struct {
	Deps
	opts Options
}

func NewUploader(deps Deps, opts Options) *Uploader {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.OCRTimeout <= 0 {
		opts.OCRTimeout = DefaultOCRTimeout
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Uploader{Deps: deps, opts: opts}
}

// UploadRequest is one stage screenshot submission.
type UploadRequest struct {
	StaffID           int64
	Stage             int
	Category          string
	Channel           string
	InteractionStatus string
	ContactNumber     string
	Filename          string
	Image             []byte
	// Hash is the hex SHA-256 of Image. It is computed when empty.
	Hash string
}

// UploadResult describes a recorded submission.
type UploadResult struct {
	Message         *models.Message       `json:"message"`
	Prospect        *models.Prospect      `json:"prospect"`
	Cycle           *models.Cycle         `json:"cycle"`
	MatchedBy       string                `json:"matched_by"`
	ProspectCreated bool                  `json:"prospect_created"`
	OCR             ocr.Result            `json:"ocr"`
	Validation      *templates.Validation `json:"template_validation,omitempty"`
}

// HashImage returns the content hash used for duplicate detection.
func HashImage(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

func (u *Uploader) validate(req *UploadRequest) *Error {
	if req.StaffID <= 0 {
		return inputError("invalid_staff", "staff id is required")
	}
	if !models.ValidStage(req.Stage) {
		return inputError("invalid_stage", "stage must be between %d and %d", models.StageCanvassing, models.MaxStage)
	}
	if req.Category == "" {
		return inputError("invalid_category", "category is required")
	}
	if !models.ValidCategory(req.Category) {
		return inputError("invalid_category", "category %q is not valid", req.Category)
	}
	if req.Channel != "" && !models.ValidChannel(req.Channel) {
		return inputError("invalid_channel", "channel %q is not valid", req.Channel)
	}
	if req.InteractionStatus != "" && !models.ValidOutcome(req.InteractionStatus) {
		return inputError("invalid_interaction_status", "interaction status %q is not valid", req.InteractionStatus)
	}
	if len(req.ContactNumber) > maxContactNumberLen {
		return inputError("invalid_contact_number", "contact number is longer than %d characters", maxContactNumberLen)
	}
	if len(req.Image) == 0 {
		return inputError("invalid_screenshot", "screenshot is empty")
	}
	if int64(len(req.Image)) > u.opts.MaxUploadBytes {
		return inputError("invalid_screenshot", "screenshot is larger than %d bytes", u.opts.MaxUploadBytes)
	}
	if !imageExtensions[strings.ToLower(path.Ext(req.Filename))] {
		return inputError("invalid_screenshot", "screenshot must be a jpeg, png or gif image")
	}
	return nil
}

// Upload records one screenshot. Any failure after the duplicate check rolls
// back every database change and deletes the stored file. Failures are
// returned as *Error.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if perr := u.validate(&req); perr != nil {
		return nil, perr
	}
	if req.Hash == "" {
		req.Hash = HashImage(req.Image)
	}

	logger := u.Logger.With(
		zap.Int64("staff_id", req.StaffID),
		zap.Int("stage", req.Stage),
		zap.String("hash", req.Hash),
	)

	dup, err := u.Store.HashExists(ctx, req.Hash)
	if err != nil {
		return nil, u.fail(logger, eris.Wrap(err, "duplicate hash check"))
	}
	if dup {
		return nil, inputError(ReasonDuplicateScreenshot, "this screenshot was already uploaded")
	}

	now := u.Now()
	key := storage.NewKey(req.Filename, now)
	if err := u.Blobs.Put(ctx, key, req.Image); err != nil {
		return nil, u.fail(logger, eris.Wrap(err, "store screenshot"))
	}

	result, err := u.process(ctx, logger, req, key, now)
	if err != nil {
		if derr := u.Blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			logger.Error("failed to delete screenshot after failed upload", zap.String("key", key), zap.Error(derr))
		}
		return nil, u.fail(logger, err)
	}

	logger.Info("screenshot recorded",
		zap.String("message_id", result.Message.ID.String()),
		zap.String("prospect", result.Prospect.Handle),
		zap.String("matched_by", result.MatchedBy),
		zap.Bool("prospect_created", result.ProspectCreated))
	return result, nil
}

func (u *Uploader) process(ctx context.Context, logger *zap.Logger, req UploadRequest, key string, now time.Time) (*UploadResult, error) {
	text := u.extractText(ctx, logger, req)
	parsed := u.Parser.Parse(text, &req.Stage)
	result := &UploadResult{OCR: parsed}

	if req.Stage > models.StageCanvassing && parsed.MessageSnippet != "" {
		v := u.Scorer.ValidateForStage(parsed.MessageSnippet, req.Stage)
		result.Validation = &v
		if !v.Valid {
			return nil, templateError(req.Stage, v)
		}
	}

	if parsed.Username == "" {
		logger.Warn("no handle found in screenshot",
			zap.Int("text_length", len(text)),
			zap.Int("snippet_length", len(parsed.MessageSnippet)))
		return nil, &Error{
			Kind:   KindExtraction,
			Reason: "username_not_found",
			Message: fmt.Sprintf("could not read the Instagram username; make sure it is visible at the top of "+
				"the screenshot, not covered by a notification, and the image is sharp (detected text: %q)",
				excerpt(parsed.MessageSnippet, headerExcerptLen)),
		}
	}

	err := u.Store.WithTx(ctx, func(tx *db.Store) error {
		res, err := u.Resolver.WithStore(tx).Resolve(ctx, parsed.Username, req.StaffID, req.Stage)
		if err != nil {
			return eris.Wrap(err, "resolve handle")
		}
		if !res.Valid {
			return resolutionError(res)
		}

		msg := &models.Message{
			ID:                uuid.New(),
			CycleID:           res.Cycle.ID,
			Stage:             req.Stage,
			Category:          req.Category,
			Channel:           req.Channel,
			InteractionStatus: req.InteractionStatus,
			ScreenshotKey:     key,
			ScreenshotHash:    req.Hash,
			OCRHandle:         parsed.Username,
			OCRMessageSnippet: parsed.MessageSnippet,
			OCRDate:           parsed.Date,
			SubmittedAt:       now,
			ValidationStatus:  models.ValidationPending,
		}
		if err := tx.CreateMessage(ctx, msg); err != nil {
			return err
		}

		cycle := res.Cycle
		cycle.CurrentStage = req.Stage
		cycle.AdvanceFollowup(req.Stage, now)
		oldStatus := cycle.Status
		statusChanged := cycle.ApplyOutcome(req.InteractionStatus)
		if err := tx.UpdateCycle(ctx, cycle); err != nil {
			return err
		}
		if statusChanged {
			if err := tx.CreateStatusLog(ctx, &models.CycleStatusLog{
				CycleID:   cycle.ID,
				OldStatus: string(oldStatus),
				NewStatus: string(cycle.Status),
				ChangedBy: req.StaffID,
				Notes:     "interaction: " + req.InteractionStatus,
			}); err != nil {
				return err
			}
		}

		if err := tx.MergeProspectContact(ctx, res.Prospect.ID, db.ContactUpdate{
			Category:      req.Category,
			Channel:       req.Channel,
			ContactNumber: req.ContactNumber,
		}); err != nil {
			return err
		}

		result.Message = msg
		result.Prospect = res.Prospect
		result.Cycle = cycle
		result.MatchedBy = res.MatchedBy
		result.ProspectCreated = res.ProspectCreated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// extractText runs OCR under the configured timeout. Engine errors and
// timeouts read as empty text and are not retried.
func (u *Uploader) extractText(ctx context.Context, logger *zap.Logger, req UploadRequest) string {
	if u.Engine == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, u.opts.OCRTimeout)
	defer cancel()

	start := time.Now()
	text, err := u.Engine.ExtractText(ctx, req.Image, req.Filename)
	if err != nil {
		logger.Warn("ocr failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return ""
	}
	logger.Debug("ocr complete", zap.Int("text_length", len(text)), zap.Duration("elapsed", time.Since(start)))
	return text
}

// fail classifies err and logs internal faults with their full chain.
func (u *Uploader) fail(logger *zap.Logger, err error) *Error {
	perr := classify(err)
	if perr.Kind == KindInternal {
		logger.Error("operation failed", zap.String("error", eris.ToString(perr.Err, true)))
	} else {
		logger.Info("request rejected", zap.String("kind", string(perr.Kind)), zap.String("reason", perr.Reason))
	}
	return perr
}

func templateError(stage int, v templates.Validation) *Error {
	detected := "not detected"
	if v.DetectedStage != nil {
		detected = models.StageLabel(*v.DetectedStage)
	}
	expected := stage
	return &Error{
		Kind:          KindTemplate,
		Reason:        "template_mismatch",
		Message:       fmt.Sprintf("message does not match the Day %d template (detected: %s)", stage, detected),
		ExpectedStage: &expected,
		DetectedStage: v.DetectedStage,
	}
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
