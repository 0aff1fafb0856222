package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"protocol-review-api/middleware"
	"protocol-review-api/services"
	"protocol-review-api/utils"
)

// maxUploadBytes caps a single document upload.
const maxUploadBytes = int64(25 * 1024 * 1024)

var allowedUploadTypes = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".zip":  true,
}

// saveUpload validates the multipart file and writes it under the
// protocol's blob directory, returning the storage location.
func saveUpload(c *gin.Context, protocolID string) (storagePath, originalName string, ok bool) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return "", "", false
	}

	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size exceeds 25MB limit"})
		return "", "", false
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedUploadTypes[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
		return "", "", false
	}

	dir := utils.StorageDir(protocolID)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create upload directory"})
		return "", "", false
	}

	fullPath := utils.UniquePath(utils.StoragePath(protocolID, file.Filename))
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return "", "", false
	}

	return fullPath, file.Filename, true
}

// UploadDocument creates a new logical document from a multipart upload.
func UploadDocument(c *gin.Context) {
	protocolID := c.Param("id")

	storagePath, originalName, ok := saveUpload(c, protocolID)
	if !ok {
		return
	}

	meta := services.DocumentMeta{
		Title:            c.PostForm("title"),
		Category:         c.PostForm("category"),
		OriginalFilename: originalName,
		StoragePath:      storagePath,
	}
	if meta.Title == "" {
		meta.Title = originalName
	}

	doc, err := documentService.Create(c.Request.Context(), middleware.CurrentActor(c), protocolID, meta)
	if err != nil {
		os.Remove(storagePath)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

// GetDocuments lists the protocol's documents.
func GetDocuments(c *gin.Context) {
	docs, err := documentService.ListForProtocol(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// ReviewDocument records the chairperson's verdict on a pending document.
func ReviewDocument(c *gin.Context) {
	var req struct {
		Status  string `json:"status" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := documentService.Review(c.Request.Context(), middleware.CurrentActor(c),
		c.Param("id"), c.Param("did"), req.Status, req.Comment)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// FulfillRequest re-uploads a document against an open revision request.
func FulfillRequest(c *gin.Context) {
	protocolID := c.Param("id")

	storagePath, originalName, ok := saveUpload(c, protocolID)
	if !ok {
		return
	}

	doc, err := documentService.Fulfill(c.Request.Context(), middleware.CurrentActor(c),
		protocolID, c.Param("rid"), services.FileMeta{
			OriginalFilename: originalName,
			StoragePath:      storagePath,
		})
	if err != nil {
		os.Remove(storagePath)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// DownloadDocument streams the stored blob.
func DownloadDocument(c *gin.Context) {
	doc, err := documentService.GetByID(c.Request.Context(), c.Param("id"), c.Param("did"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if _, err := os.Stat(doc.StoragePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stored file is missing"})
		return
	}

	c.FileAttachment(doc.StoragePath, doc.OriginalFilename)
}

// PreviewDocument returns file content for inline preview. For compressed
// containers, ?entry= selects one entry; without a usable entry the
// container's entry list is returned instead of content.
func PreviewDocument(c *gin.Context) {
	doc, err := documentService.GetByID(c.Request.Context(), c.Param("id"), c.Param("did"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var preview *services.Preview
	if doc.StoragePath == "" {
		// Legacy records carry only the original filename.
		preview, err = previews.PreviewLegacy(doc.ProtocolID, doc.OriginalFilename, c.Query("entry"))
	} else {
		preview, err = previews.Preview(doc.StoragePath, c.Query("entry"))
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Preview unavailable"})
		return
	}

	if preview.Entries != nil {
		c.JSON(http.StatusOK, gin.H{"entries": preview.Entries})
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", preview.Content)
}
