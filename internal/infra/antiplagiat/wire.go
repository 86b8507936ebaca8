package antiplagiat

import (
	"encoding/json"
	"time"

	"originality_sync/internal/domain/remote"
)

// docHandle is the service's document identifier. It is stored verbatim as
// remote.DocumentID and sent back unchanged.
type docHandle = json.RawMessage

type attributesDTO struct {
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	CourseID  int64     `json:"course_id"`
	ModuleID  int64     `json:"module_id"`
	AnswerID  int64     `json:"answer_id"`
	Attempt   int       `json:"attempt"`
	WorkType  string    `json:"work_type,omitempty"`
	AddedDate time.Time `json:"added_date"`
}

func toAttributesDTO(a remote.Attributes) attributesDTO {
	return attributesDTO{
		Author:    a.Author,
		Title:     a.Title,
		CourseID:  a.CourseID,
		ModuleID:  a.ModuleID,
		AnswerID:  a.AnswerID,
		Attempt:   a.Attempt,
		WorkType:  a.WorkType,
		AddedDate: a.AddedDate.UTC(),
	}
}

type uploadRequest struct {
	Data           []byte        `json:"data"` // base64 on the wire
	FileName       string        `json:"file_name"`
	FileType       string        `json:"file_type"`
	ExternalUserID string        `json:"external_user_id"`
	Attributes     attributesDTO `json:"attributes"`
}

type uploadResponse struct {
	DocumentID docHandle `json:"document_id"`
}

type documentRequest struct {
	DocumentID docHandle `json:"document_id"`
}

type attributesRequest struct {
	DocumentID docHandle     `json:"document_id"`
	Attributes attributesDTO `json:"attributes"`
}

type indexRequest struct {
	DocumentID docHandle `json:"document_id"`
	AddToIndex bool      `json:"add_to_index"`
}

type summaryDTO struct {
	Score          float64 `json:"score"` // plagiarism share
	LegalScore     float64 `json:"legal_score"`
	SelfCiteScore  float64 `json:"self_cite_score"`
	IsSuspicious   bool    `json:"is_suspicious"`
	ReportEditURL  string  `json:"report_edit_url"`
	ReportReadURL  string  `json:"report_read_url"`
	ReportShortURL string  `json:"report_short_url"`
}

func (s *summaryDTO) toSummary() *remote.Summary {
	return &remote.Summary{
		Plagiarism:     s.Score,
		Legal:          s.LegalScore,
		SelfCite:       s.SelfCiteScore,
		IsSuspicious:   s.IsSuspicious,
		ReportEditLink: s.ReportEditURL,
		ReportReadLink: s.ReportReadURL,
		ShortLink:      s.ReportShortURL,
	}
}

type statusResponse struct {
	Status            string      `json:"status"`
	EstimatedWaitTime int         `json:"estimated_wait_time"` // seconds
	FailureDetails    string      `json:"failure_details"`
	Summary           *summaryDTO `json:"summary"`
}

type accountResponse struct {
	Tariff          string    `json:"tariff"`
	SubscriptionEnd time.Time `json:"subscription_end"`
	TotalChecks     int       `json:"total_checks"`
	RemainingChecks int       `json:"remaining_checks"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
