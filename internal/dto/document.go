package dto

import (
	"github.com/parks-gardens/fieldops-api/internal/repository"
	"github.com/parks-gardens/fieldops-api/internal/utils"
)

// UploadResult is returned after a document file upload
type UploadResult struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
}

// MachineryHistoryResponse is a page of machinery usage history
type MachineryHistoryResponse struct {
	History    []repository.MachineryHistoryRow `json:"history"`
	Pagination utils.PaginationResponse         `json:"pagination"`
}
