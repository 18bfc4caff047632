package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

var (
	ErrNotConfigured   = errors.New("attachments: storage bucket is not configured")
	ErrUnsupportedType = errors.New("attachments: unsupported content type")
	ErrTooLarge        = errors.New("attachments: file exceeds the size limit")
	ErrEmptyFile       = errors.New("attachments: file is empty")
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner issues time limited download links.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type fileKind struct {
	ext        string
	kind       clinical.AttachmentKind
	reportType clinical.ReportType
}

var allowedTypes = map[string]fileKind{
	"application/pdf":   {".pdf", clinical.AttachmentPDF, clinical.ReportPDF},
	"image/png":         {".png", clinical.AttachmentImage, clinical.ReportImaging},
	"image/jpeg":        {".jpg", clinical.AttachmentImage, clinical.ReportImaging},
	"application/dicom": {".dcm", clinical.AttachmentDICOM, clinical.ReportDICOM},
}

// Upload is one file received from a clinician.
type Upload struct {
	UserID      string
	PatientID   string
	Filename    string
	ContentType string
	Body        io.Reader
}

// Stored describes an uploaded object.
type Stored struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
	Kind        clinical.AttachmentKind
	ReportType  clinical.ReportType
	ExpiresAt   time.Time
}

// Store uploads report attachments to S3 and hands back presigned links.
type Store struct {
	bucket    string
	s3        S3API
	presigner Presigner
	urlTTL    time.Duration
	maxBytes  int64
	logger    *logging.Logger
	now       func() time.Time
}

type Option func(*Store)

func WithURLTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.urlTTL = d
		}
	}
}

func WithMaxBytes(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store. With an empty bucket every upload fails with
// ErrNotConfigured.
func NewStore(client S3API, presigner Presigner, bucket string, opts ...Option) *Store {
	s := &Store{
		bucket:    bucket,
		s3:        client,
		presigner: presigner,
		urlTTL:    24 * time.Hour,
		maxBytes:  25 << 20,
		logger:    logging.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether uploads can be stored.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3 != nil && s.presigner != nil
}

// ContentTypeOK checks the declared content type and returns its media type.
func ContentTypeOK(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	mediaType = strings.ToLower(mediaType)
	if _, ok := allowedTypes[mediaType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
	}
	return mediaType, nil
}

// BuildKey constructs the object key for a report attachment.
func BuildKey(userID, patientID, id, ext string) string {
	return fmt.Sprintf("reports/%s/%s/%s%s", userID, patientID, id, ext)
}

// Upload validates and stores the file, returning a presigned GET link.
func (s *Store) Upload(ctx context.Context, up Upload) (Stored, error) {
	if !s.Enabled() {
		return Stored{}, ErrNotConfigured
	}
	mediaType, err := ContentTypeOK(up.ContentType)
	if err != nil {
		return Stored{}, err
	}
	if up.UserID == "" || up.PatientID == "" {
		return Stored{}, errors.New("attachments: user and patient are required")
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, s.maxBytes+1))
	if err != nil {
		return Stored{}, fmt.Errorf("attachments: read upload: %w", err)
	}
	if len(data) == 0 {
		return Stored{}, ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return Stored{}, ErrTooLarge
	}

	kind := allowedTypes[mediaType]
	key := BuildKey(up.UserID, up.PatientID, uuid.NewString(), kind.ext)
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentLength:        aws.Int64(int64(len(data))),
		ContentType:          aws.String(mediaType),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
		Metadata: map[string]string{
			"user_id":           up.UserID,
			"patient_id":        up.PatientID,
			"original_filename": sanitizeName(up.Filename),
		},
	})
	if err != nil {
		return Stored{}, fmt.Errorf("attachments: s3 put %s: %w", key, err)
	}

	url, err := s.PresignedURL(ctx, key)
	if err != nil {
		return Stored{}, err
	}
	s.logger.Info("stored report attachment", "key", key, "content_type", mediaType, "bytes", len(data))
	return Stored{
		Key:         key,
		URL:         url,
		ContentType: mediaType,
		Size:        int64(len(data)),
		Kind:        kind.kind,
		ReportType:  kind.reportType,
		ExpiresAt:   s.now().Add(s.urlTTL),
	}, nil
}

// PresignedURL issues a download link for key.
func (s *Store) PresignedURL(ctx context.Context, key string) (string, error) {
	if !s.Enabled() {
		return "", ErrNotConfigured
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = s.urlTTL })
	if err != nil {
		return "", fmt.Errorf("attachments: presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Report builds the chart entry for a stored attachment.
func (st Stored) Report(id, title, date, rawText string) clinical.Report {
	return clinical.Report{
		ID:    id,
		Type:  st.ReportType,
		Date:  date,
		Title: title,
		Content: clinical.AttachmentContent{
			Kind:    st.Kind,
			URL:     st.URL,
			RawText: rawText,
		},
	}
}

// sanitizeName keeps the base name and falls back to "report".
func sanitizeName(name string) string {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "report"
	}
	return name
}
