package controllers

import (
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"cityconnect-be/middlewares"
	"cityconnect-be/services"
)

const (
	maxUploadSize  = 10 << 20
	maxUploadFiles = 10
)

type FileController struct {
	storage *services.StorageService
}

func NewFileController(storage *services.StorageService) *FileController {
	return &FileController{storage: storage}
}

// uploadPrefix is the requested folder, "issues" by default, scoped to the user.
func uploadPrefix(c *gin.Context) string {
	folder := strings.Trim(c.PostForm("path"), "/")
	if folder == "" {
		folder = "issues"
	}
	return folder + "/" + middlewares.UserID(c)
}

func openUploads(headers []*multipart.FileHeader) ([]services.File, func(), error) {
	files := make([]services.File, 0, len(headers))
	closers := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range closers {
			_ = f.Close()
		}
	}
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, f)
		files = append(files, services.File{
			Name:        h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Reader:      f,
		})
	}
	return files, closeAll, nil
}

func tooLarge(headers []*multipart.FileHeader) bool {
	for _, h := range headers {
		if h.Size > maxUploadSize {
			return true
		}
	}
	return false
}

// UploadFile stores the multipart "file" field and returns its URL.
func (fc *FileController) UploadFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "File is required")
		return
	}
	if tooLarge([]*multipart.FileHeader{header}) {
		badRequest(c, "File is too large")
		return
	}
	files, closeAll, err := openUploads([]*multipart.FileHeader{header})
	if err != nil {
		badRequest(c, "Failed to read file")
		return
	}
	defer closeAll()

	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusCreated, fc.storage.UploadFile(ctx, files[0], uploadPrefix(c)))
}

// UploadMultipleFiles stores every "files" field. Either all are stored and
// all URLs returned, or the request fails.
func (fc *FileController) UploadMultipleFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "Invalid multipart form")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(c, "At least one file is required")
		return
	}
	if len(headers) > maxUploadFiles {
		badRequest(c, "Too many files")
		return
	}
	if tooLarge(headers) {
		badRequest(c, "File is too large")
		return
	}
	files, closeAll, err := openUploads(headers)
	if err != nil {
		badRequest(c, "Failed to read file")
		return
	}
	defer closeAll()

	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusCreated, fc.storage.UploadMultipleFiles(ctx, files, uploadPrefix(c)))
}

// Download streams the object named by the wildcard path.
func (fc *FileController) Download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	res := fc.storage.OpenFile(c.Request.Context(), key)
	if !res.Success {
		respondError(c, res.Err)
		return
	}
	obj := res.Data
	defer obj.Close()

	contentType, disposition := servedAs(obj.ContentType, path.Base(key))
	c.DataFromReader(http.StatusOK, obj.Size, contentType, obj, map[string]string{
		"Cache-Control":           "public, max-age=86400",
		"Content-Disposition":     disposition,
		"Content-Security-Policy": "default-src 'none'; sandbox",
		"X-Content-Type-Options":  "nosniff",
	})
}

// inlineTypes are shown in the browser; everything else is downloaded.
var inlineTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// servedAs picks the response type and disposition for a stored object.
// Uploads carry the client's content type, so only raster images are
// served inline.
func servedAs(stored, filename string) (contentType, disposition string) {
	mediaType, _, err := mime.ParseMediaType(stored)
	if err == nil && inlineTypes[mediaType] {
		return mediaType, "inline"
	}
	return "application/octet-stream", mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
