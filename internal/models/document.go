package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

type Status string

const (
	DocStatusUploaded   Status = "uploaded"
	DocStatusProcessing Status = "processing"
	DocStatusReady      Status = "ready"
	DocStatusError      Status = "error"
)

// Terminal reports whether the pipeline stops self-transitioning at s.
func (s Status) Terminal() bool {
	return s == DocStatusReady || s == DocStatusError
}

func (s Status) Valid() bool {
	switch s {
	case DocStatusUploaded, DocStatusProcessing, DocStatusReady, DocStatusError:
		return true
	}
	return false
}

// Field names of the persisted document hash.
const (
	FieldID                  = "id"
	FieldUserID              = "userId"
	FieldTitle               = "title"
	FieldOriginalFilename    = "originalFilename"
	FieldFileType            = "fileType"
	FieldFileSize            = "fileSize"
	FieldFileURL             = "fileUrl"
	FieldStatus              = "status"
	FieldUploadedAt          = "uploadedAt"
	FieldProcessingStartedAt = "processingStartedAt"
	FieldExtractedText       = "extractedText"
	FieldExtractedAt         = "extractedAt"
	FieldCleanedText         = "cleanedText"
	FieldCleanedAt           = "cleanedAt"
	FieldAudioURL            = "audioUrl"
	FieldSpeechMarks         = "speechMarks"
	FieldProcessedAt         = "processedAt"
	FieldError               = "error"
	FieldErrorAt             = "errorAt"
	FieldVoiceID             = "voiceId"
	FieldRunID               = "runId"
)

// OutcomeFields are cleared whenever a new processing run starts.
var OutcomeFields = []string{FieldError, FieldErrorAt, FieldAudioURL, FieldSpeechMarks, FieldProcessedAt}

type Document struct {
	ID                  string       `json:"id"`
	UserID              string       `json:"userId"`
	Title               string       `json:"title"`
	OriginalFilename    string       `json:"originalFilename"`
	FileType            string       `json:"fileType"`
	FileSize            int64        `json:"fileSize"`
	FileURL             string       `json:"fileUrl"`
	Status              Status       `json:"status"`
	UploadedAt          string       `json:"uploadedAt"`
	ProcessingStartedAt string       `json:"processingStartedAt,omitempty"`
	ExtractedText       string       `json:"extractedText,omitempty"`
	ExtractedAt         string       `json:"extractedAt,omitempty"`
	CleanedText         string       `json:"cleanedText,omitempty"`
	CleanedAt           string       `json:"cleanedAt,omitempty"`
	AudioURL            string       `json:"audioUrl,omitempty"`
	SpeechMarks         []SpeechMark `json:"speechMarks"`
	ProcessedAt         string       `json:"processedAt,omitempty"`
	Error               string       `json:"error,omitempty"`
	ErrorAt             string       `json:"errorAt,omitempty"`
	VoiceID             string       `json:"voiceId,omitempty"`
	RunID               string       `json:"-"`
}

// SpeechMark maps a playback offset in milliseconds to a word index of the cleaned text.
type SpeechMark struct {
	Time      int64 `json:"time"`
	WordIndex int   `json:"wordIndex"`
}

// StatusResponse is the body returned by the status endpoint.
type StatusResponse struct {
	ID          string `json:"id"`
	Status      Status `json:"status"`
	Title       string `json:"title"`
	Error       string `json:"error,omitempty"`
	AudioURL    string `json:"audioUrl,omitempty"`
	ProcessedAt string `json:"processedAt,omitempty"`
}

func (d *Document) StatusResponse() StatusResponse {
	return StatusResponse{
		ID:          d.ID,
		Status:      d.Status,
		Title:       d.Title,
		Error:       d.Error,
		AudioURL:    d.AudioURL,
		ProcessedAt: d.ProcessedAt,
	}
}

// Fields returns the flat string map stored for d. Empty optional fields are omitted.
func (d *Document) Fields() map[string]string {
	f := map[string]string{
		FieldID:               d.ID,
		FieldUserID:           d.UserID,
		FieldTitle:            d.Title,
		FieldOriginalFilename: d.OriginalFilename,
		FieldFileType:         d.FileType,
		FieldFileSize:         strconv.FormatInt(d.FileSize, 10),
		FieldFileURL:          d.FileURL,
		FieldStatus:           string(d.Status),
		FieldUploadedAt:       d.UploadedAt,
	}
	optional := map[string]string{
		FieldProcessingStartedAt: d.ProcessingStartedAt,
		FieldExtractedText:       d.ExtractedText,
		FieldExtractedAt:         d.ExtractedAt,
		FieldCleanedText:         d.CleanedText,
		FieldCleanedAt:           d.CleanedAt,
		FieldAudioURL:            d.AudioURL,
		FieldProcessedAt:         d.ProcessedAt,
		FieldError:               d.Error,
		FieldErrorAt:             d.ErrorAt,
		FieldVoiceID:             d.VoiceID,
		FieldRunID:               d.RunID,
	}
	for k, v := range optional {
		if v != "" {
			f[k] = v
		}
	}
	if d.Status == DocStatusReady {
		f[FieldSpeechMarks] = EncodeSpeechMarks(d.SpeechMarks)
	}
	return f
}

// DocumentFromFields parses a stored hash. Unknown fields are ignored.
func DocumentFromFields(f map[string]string) (*Document, error) {
	d := &Document{
		ID:                  f[FieldID],
		UserID:              f[FieldUserID],
		Title:               f[FieldTitle],
		OriginalFilename:    f[FieldOriginalFilename],
		FileType:            f[FieldFileType],
		FileURL:             f[FieldFileURL],
		Status:              Status(f[FieldStatus]),
		UploadedAt:          f[FieldUploadedAt],
		ProcessingStartedAt: f[FieldProcessingStartedAt],
		ExtractedText:       f[FieldExtractedText],
		ExtractedAt:         f[FieldExtractedAt],
		CleanedText:         f[FieldCleanedText],
		CleanedAt:           f[FieldCleanedAt],
		AudioURL:            f[FieldAudioURL],
		ProcessedAt:         f[FieldProcessedAt],
		Error:               f[FieldError],
		ErrorAt:             f[FieldErrorAt],
		VoiceID:             f[FieldVoiceID],
		RunID:               f[FieldRunID],
	}

	if v := f[FieldFileSize]; v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse fileSize %q: %w", v, err)
		}
		d.FileSize = size
	}

	marks, err := DecodeSpeechMarks(f[FieldSpeechMarks])
	if err != nil {
		return nil, err
	}
	d.SpeechMarks = marks

	return d, nil
}

// EncodeSpeechMarks serializes marks to the JSON array stored on the record.
// A nil or empty slice encodes as "[]".
func EncodeSpeechMarks(marks []SpeechMark) string {
	if len(marks) == 0 {
		return "[]"
	}
	data, err := json.Marshal(marks)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// DecodeSpeechMarks parses a stored serialization. Anything of length <= 2 means no marks.
func DecodeSpeechMarks(s string) ([]SpeechMark, error) {
	if len(s) <= 2 {
		return []SpeechMark{}, nil
	}
	var marks []SpeechMark
	if err := json.Unmarshal([]byte(s), &marks); err != nil {
		return nil, fmt.Errorf("parse speechMarks: %w", err)
	}
	return marks, nil
}

// NormalizeSpeechMarks sorts marks by time and drops entries whose word index
// falls outside [0, wordCount).
func NormalizeSpeechMarks(marks []SpeechMark, wordCount int) []SpeechMark {
	out := make([]SpeechMark, 0, len(marks))
	for _, m := range marks {
		if m.WordIndex < 0 || m.WordIndex >= wordCount || m.Time < 0 {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Timestamp formats t the way every lifecycle field is stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
