// Package upload drives the resumable chunked media upload: one session
// start, then sequential upload-and-acknowledge round trips until the
// cursor reaches the total length. The last acknowledged response carries
// the content handle the outbound pipeline uses in image payloads.
package upload

import (
	"context"
	"encoding/base64"
	"io"

	"go.uber.org/zap"

	"github.com/sergeyvolkov/chatflow/internal/common/errors"
	"github.com/sergeyvolkov/chatflow/internal/observability"
)

// Backend is the slice of the service boundary the uploader needs.
type Backend interface {
	StartUploadSession(ctx context.Context, name string, length int64, contentType string) (string, error)
	UploadChunk(ctx context.Context, sessionID, base64Content string, cursor int64, length int, name string) (string, error)
}

// Progress reports the cursor after each acknowledged chunk.
type Progress func(sent, total int64)

type Uploader struct {
	backend   Backend
	chunkSize int64
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func New(backend Backend, chunkSize int64, metrics *observability.Metrics, logger *zap.Logger) *Uploader {
	return &Uploader{
		backend:   backend,
		chunkSize: chunkSize,
		metrics:   metrics,
		logger:    logger,
	}
}

// Upload sends the content and returns the backend content handle. A failed
// chunk halts the loop and fails the whole upload; there is no per-chunk
// retry and the session is simply abandoned.
func (u *Uploader) Upload(ctx context.Context, name, contentType string, content io.Reader, totalLength int64, progress Progress) (string, error) {
	if totalLength <= 0 {
		return "", errors.Validation("upload content is empty")
	}

	sessionID, err := u.backend.StartUploadSession(ctx, name, totalLength, contentType)
	if err != nil {
		return "", err
	}

	u.logger.Info("upload session started",
		zap.String("session_id", sessionID),
		zap.String("name", name),
		zap.Int64("total_bytes", totalLength),
	)

	buf := make([]byte, u.chunkSize)
	var cursor int64
	var handle string

	for cursor < totalLength {
		chunkLen := u.chunkSize
		if remaining := totalLength - cursor; remaining < chunkLen {
			chunkLen = remaining
		}

		if _, err := io.ReadFull(content, buf[:chunkLen]); err != nil {
			return "", errors.Upload("upload failed", err)
		}

		encoded := base64.StdEncoding.EncodeToString(buf[:chunkLen])
		handle, err = u.backend.UploadChunk(ctx, sessionID, encoded, cursor, int(chunkLen), name)
		if err != nil {
			u.logger.Warn("chunk upload failed, abandoning session",
				zap.String("session_id", sessionID),
				zap.Int64("cursor", cursor),
				zap.Error(err),
			)
			return "", err
		}

		u.metrics.RecordUploadChunk(int(chunkLen))
		cursor += chunkLen
		if progress != nil {
			progress(cursor, totalLength)
		}
	}

	u.logger.Info("upload completed",
		zap.String("session_id", sessionID),
		zap.String("handle", handle),
	)
	return handle, nil
}
