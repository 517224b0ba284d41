package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/photohns/backend/facade"
	"github.com/photohns/backend/keysource"
	"github.com/photohns/backend/models"
)

// Handlers holds the facade-level dependencies the HTTP layer dispatches
// into. There is only one collaborator, unlike the teacher's four-service
// struct, because facade already owns orchestration of cipher/header/carrier
// selection (C7); keysrc is held here, not inside facade, so a single
// process-lifetime machine identity is shared across every request.
type Handlers struct {
	keysrc   *keysource.Source
	validate *validator.Validate
}

// NewHandlers builds a Handlers around the given keysource.Source, which
// initializes lazily on first use and serves every request for the life of
// the process.
func NewHandlers(keysrc *keysource.Source) *Handlers {
	return &Handlers{keysrc: keysrc, validate: validator.New()}
}

// outputFilenameForm validates the optional output_filename form field: it
// must contain no path separators (so Content-Disposition can never smuggle
// a traversal) and fit a sane length, matching the teacher's reach for
// validator struct tags over hand-rolled string checks.
type outputFilenameForm struct {
	OutputFilename string `validate:"omitempty,excludesall=/,max=255"`
}

func (h *Handlers) validOutputFilename(c *gin.Context) (string, bool) {
	form := outputFilenameForm{OutputFilename: c.PostForm("output_filename")}
	if err := h.validate.Struct(form); err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_OUTPUT_FILENAME", "output_filename must not contain path separators")
		return "", false
	}
	return form.OutputFilename, true
}

// HealthResponse mirrors the teacher's health check shape.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

// HealthHandler handles the liveness endpoint.
//
//	@Summary		Health Check
//	@Description	Returns the health status of the API service
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"Service is healthy"
//	@Router			/health [get]
func (h *Handlers) HealthHandler(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Dependencies: map[string]string{
			"keysource": h.keysrc.Kind().String(),
		},
	}

	c.Header("X-Processing-Time", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	c.JSON(http.StatusOK, response)
}

// CalculateCapacityHandler reports the 1-bit/2-bit (or JPEG AC) bit budget
// of an uploaded cover image, without requiring a payload.
//
//	@Summary		Calculate Embedding Capacity
//	@Description	Calculates the maximum payload size that can be embedded into an uploaded PNG or JPEG cover image.
//	@Tags			Steganography
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file					true	"Cover image (PNG or JPEG)"
//	@Success		200		{object}	models.CapacityResponse	"Capacity breakdown"
//	@Failure		400		{object}	models.ErrorResponse	"Bad request"
//	@Failure		422		{object}	models.ErrorResponse	"Unreadable image"
//	@Router			/capacity [post]
func (h *Handlers) CalculateCapacityHandler(c *gin.Context) {
	start := time.Now()
	requestID := requestIDOf(c)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		log.Printf("[ERROR] [%s] CalculateCapacityHandler: no image provided: %v", requestID, err)
		sendError(c, http.StatusBadRequest, "MISSING_FILE", "Cover image not provided")
		return
	}

	imageData, err := readFormFile(fileHeader)
	if err != nil {
		sendError(c, http.StatusBadRequest, "READ_ERROR", "Failed to read uploaded file")
		return
	}

	resp, err := facade.Capacity(imageData, fileHeader.Filename)
	if err != nil {
		log.Printf("[ERROR] [%s] CalculateCapacityHandler: %v", requestID, err)
		sendStatusForErr(c, err)
		return
	}

	c.Header("X-Processing-Time", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	c.JSON(http.StatusOK, resp)
}

// EmbedHandler embeds a secret payload into a cover image.
//
//	@Summary		Embed a payload into an image
//	@Description	Encrypts and embeds a payload file into a PNG or JPEG cover image using adaptive-bit LSB steganography.
//	@Tags			Steganography
//	@Accept			multipart/form-data
//	@Produce		application/octet-stream
//	@Param			image			formData	file	true	"Cover image (PNG or JPEG)"
//	@Param			payload			formData	file	true	"Payload file to embed"
//	@Param			output_filename	formData	string	false	"Output stego image filename"
//	@Success		200	{file}		binary					"Stego image with embedded payload"
//	@Failure		400	{object}	models.ErrorResponse	"Invalid input"
//	@Failure		413	{object}	models.ErrorResponse	"Payload does not fit"
//	@Failure		422	{object}	models.ErrorResponse	"Unreadable image"
//	@Router			/embed [post]
func (h *Handlers) EmbedHandler(c *gin.Context) {
	start := time.Now()
	requestID := requestIDOf(c)

	imageHeader, err := c.FormFile("image")
	if err != nil {
		sendError(c, http.StatusBadRequest, "MISSING_FILE", "Cover image not provided")
		return
	}
	imageData, err := readFormFile(imageHeader)
	if err != nil {
		sendError(c, http.StatusBadRequest, "READ_ERROR", "Failed to read cover image")
		return
	}

	payloadHeader, err := c.FormFile("payload")
	if err != nil {
		sendError(c, http.StatusBadRequest, "MISSING_FILE", "Payload file not provided")
		return
	}
	payloadData, err := readFormFile(payloadHeader)
	if err != nil {
		sendError(c, http.StatusBadRequest, "READ_ERROR", "Failed to read payload file")
		return
	}

	outputFilename, ok := h.validOutputFilename(c)
	if !ok {
		return
	}

	resp, err := facade.Embed(imageData, imageHeader.Filename, payloadData, payloadHeader.Filename, h.keysrc)
	if err != nil {
		log.Printf("[ERROR] [%s] EmbedHandler: %v", requestID, err)
		sendStatusForErr(c, err)
		return
	}

	if outputFilename == "" {
		outputFilename = "stego" + extSuffix(imageHeader.Filename)
	}

	processingTime := time.Since(start).Milliseconds()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outputFilename))
	c.Header("X-PSNR-Value", fmt.Sprintf("%.2f", resp.PSNR))
	c.Header("X-Max-Channel-Diff", strconv.Itoa(resp.MaxChannelDiff))
	c.Header("X-Embedding-Mode", resp.Mode.String())
	c.Header("X-Processing-Time", strconv.FormatInt(processingTime, 10))

	c.Data(http.StatusOK, "application/octet-stream", resp.Image)
}

// ExtractHandler recovers a previously embedded payload from a stego image.
//
//	@Summary		Extract a payload from a stego image
//	@Description	Recovers and decrypts a payload previously embedded into a PNG or JPEG stego image.
//	@Tags			Steganography
//	@Accept			multipart/form-data
//	@Produce		application/octet-stream
//	@Param			image	formData	file	true	"Stego image (PNG or JPEG)"
//	@Success		200	{file}		binary					"Extracted payload"
//	@Failure		400	{object}	models.ErrorResponse	"Invalid input"
//	@Failure		422	{object}	models.ErrorResponse	"No valid embedded header found"
//	@Router			/extract [post]
func (h *Handlers) ExtractHandler(c *gin.Context) {
	start := time.Now()
	requestID := requestIDOf(c)

	imageHeader, err := c.FormFile("image")
	if err != nil {
		sendError(c, http.StatusBadRequest, "MISSING_FILE", "Stego image not provided")
		return
	}
	imageData, err := readFormFile(imageHeader)
	if err != nil {
		sendError(c, http.StatusBadRequest, "READ_ERROR", "Failed to read stego image")
		return
	}

	override, ok := h.validOutputFilename(c)
	if !ok {
		return
	}

	resp, err := facade.Extract(imageData, imageHeader.Filename, h.keysrc)
	if err != nil {
		log.Printf("[ERROR] [%s] ExtractHandler: %v", requestID, err)
		sendStatusForErr(c, err)
		return
	}

	outputFilename := resp.Filename
	if override != "" {
		outputFilename = override
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outputFilename))
	c.Header("X-Processing-Time", strconv.FormatInt(time.Since(start).Milliseconds(), 10))

	c.Data(http.StatusOK, "application/octet-stream", resp.Payload)
}

// ProbeHandler reports the embedded header, if any, without decrypting.
// Per spec.md §7, a header that fails validation is "nothing found," not an
// error: this handler returns 200 with a null body rather than surfacing
// InvalidHeader as a hard failure.
//
//	@Summary		Probe an image for an embedded header
//	@Description	Reports the embedded header (filename, write size, lsb mode) without decrypting the payload. Returns null if nothing valid is embedded.
//	@Tags			Steganography
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file	true	"Image to probe (PNG or JPEG)"
//	@Success		200	{object}	models.ProbeResponse	"Header found, or null if nothing embedded"
//	@Failure		400	{object}	models.ErrorResponse	"Invalid input"
//	@Router			/probe [post]
func (h *Handlers) ProbeHandler(c *gin.Context) {
	requestID := requestIDOf(c)

	imageHeader, err := c.FormFile("image")
	if err != nil {
		sendError(c, http.StatusBadRequest, "MISSING_FILE", "Image not provided")
		return
	}
	imageData, err := readFormFile(imageHeader)
	if err != nil {
		sendError(c, http.StatusBadRequest, "READ_ERROR", "Failed to read image")
		return
	}

	resp, err := facade.Probe(imageData, imageHeader.Filename)
	if err != nil {
		if errors.Is(err, models.ErrInvalidHeader) {
			log.Printf("[DEBUG] [%s] ProbeHandler: nothing embedded", requestID)
			c.JSON(http.StatusOK, nil)
			return
		}
		log.Printf("[ERROR] [%s] ProbeHandler: %v", requestID, err)
		sendStatusForErr(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func requestIDOf(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func extSuffix(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[i:]
		}
	}
	return ""
}

// sendError sends a standardized error response, matching the teacher's
// ErrorResponse/ErrorDetail shape.
func sendError(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, models.ErrorResponse{
		Success: false,
		Error: models.ErrorDetail{
			Message: message,
			Details: map[string]interface{}{"code": code},
		},
	})
}

// sendStatusForErr maps a facade sentinel error to the HTTP status table in
// SPEC_FULL.md §7.
func sendStatusForErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrUnsupportedContainer):
		sendError(c, http.StatusBadRequest, "UNSUPPORTED_CONTAINER", err.Error())
	case errors.Is(err, models.ErrDecodeImage), errors.Is(err, models.ErrEncodeImage):
		sendError(c, http.StatusUnprocessableEntity, "IMAGE_CODEC_ERROR", err.Error())
	case errors.Is(err, models.ErrCapacityError):
		sendError(c, http.StatusRequestEntityTooLarge, "CAPACITY_ERROR", err.Error())
	case errors.Is(err, models.ErrInvalidHeader):
		sendError(c, http.StatusUnprocessableEntity, "INVALID_HEADER", err.Error())
	case errors.Is(err, models.ErrCipherBadKeyLength), errors.Is(err, models.ErrCipherEmpty), errors.Is(err, models.ErrCipherPadding):
		sendError(c, http.StatusBadRequest, "CIPHER_ERROR", err.Error())
	case errors.Is(err, models.ErrInternalBug):
		sendError(c, http.StatusInternalServerError, "INTERNAL_BUG", err.Error())
	case errors.Is(err, models.ErrIo):
		sendError(c, http.StatusInternalServerError, "IO_ERROR", err.Error())
	default:
		sendError(c, http.StatusInternalServerError, "UNKNOWN_ERROR", err.Error())
	}
}
