package recruitrag

import (
	"errors"

	"github.com/devMohamedYusri/Recruit-Rag/screening"
	"github.com/devMohamedYusri/Recruit-Rag/upload"
)

var (
	// ErrProjectNotFound is returned when a project ID does not exist.
	ErrProjectNotFound = errors.New("recruitrag: project not found")

	// ErrJobDescriptionNotFound is returned when screening is requested for a
	// project that has no job description.
	ErrJobDescriptionNotFound = errors.New("recruitrag: no job description for project")

	// ErrResumeNotFound is returned when a resume ID does not exist.
	ErrResumeNotFound = errors.New("recruitrag: resume not found")

	// ErrAssetNotFound is returned when an asset ID does not exist.
	ErrAssetNotFound = errors.New("recruitrag: asset not found")

	// Upload validation errors, aliased so callers can match them at the
	// engine boundary with errors.Is.
	ErrTooManyFiles    = upload.ErrTooManyFiles
	ErrUploadTooLarge  = upload.ErrTooLarge
	ErrBadArchive      = upload.ErrBadArchive
	ErrUnsupportedFile = upload.ErrUnsupportedFile
	ErrStorageFailed   = upload.ErrStorageFailed

	// ErrPromptInjection is returned when the job description or its extra
	// screening instructions trip the injection guard.
	ErrPromptInjection = screening.ErrPromptInjection

	// ErrExtractionFailed is returned when local document loading fails or the
	// extracted text fails resume validation. The ingestion engine demotes it
	// to the LLM fallback path rather than surfacing it.
	ErrExtractionFailed = errors.New("recruitrag: resume extraction failed")

	// ErrLLMRequestFailed is returned when the generation service fails.
	ErrLLMRequestFailed = errors.New("recruitrag: LLM request failed")

	// ErrVectorUpsertFailed is returned when writing to the vector backend fails.
	ErrVectorUpsertFailed = errors.New("recruitrag: vector upsert failed")

	// ErrNoChunks is returned when a vector operation is requested for a
	// project with no indexed chunks.
	ErrNoChunks = errors.New("recruitrag: no chunks found for project")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("recruitrag: invalid configuration")
)
