package attachments

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
)

type mockS3Client struct {
	puts []*s3.PutObjectInput
	body []byte
	err  error
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.body, _ = io.ReadAll(input.Body)
	m.puts = append(m.puts, input)
	return &s3.PutObjectOutput{}, nil
}

type mockPresigner struct {
	expires time.Duration
}

func (m *mockPresigner) PresignGetObject(_ context.Context, input *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	m.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + *input.Key}, nil
}

func TestUploadStoresPDFAndPresigns(t *testing.T) {
	client := &mockS3Client{}
	presigner := &mockPresigner{}
	store := NewStore(client, presigner, "reports-bucket", WithURLTTL(time.Hour))

	stored, err := store.Upload(context.Background(), Upload{
		UserID:      "u-1",
		PatientID:   "p-1",
		Filename:    "C:\\scans\\echo.pdf",
		ContentType: "application/pdf; charset=binary",
		Body:        strings.NewReader("%PDF-1.7 ..."),
	})

	require.NoError(t, err)
	require.Len(t, client.puts, 1)
	put := client.puts[0]
	assert.Equal(t, "reports-bucket", *put.Bucket)
	assert.True(t, strings.HasPrefix(*put.Key, "reports/u-1/p-1/"))
	assert.True(t, strings.HasSuffix(*put.Key, ".pdf"))
	assert.Equal(t, "echo.pdf", put.Metadata["original_filename"])
	assert.Equal(t, []byte("%PDF-1.7 ..."), client.body)
	assert.Equal(t, "https://signed.example/"+*put.Key, stored.URL)
	assert.Equal(t, time.Hour, presigner.expires)
	assert.Equal(t, clinical.ReportPDF, stored.ReportType)

	report := stored.Report("r-1", "Echo PDF", "2024-06-01", "LVEF 40%")
	require.NoError(t, report.Validate())
	assert.Equal(t, clinical.ViewerPDF, clinical.ViewerFor(report))
}

func TestUploadRejectsBadInput(t *testing.T) {
	store := NewStore(&mockS3Client{}, &mockPresigner{}, "bucket", WithMaxBytes(4))

	_, err := store.Upload(context.Background(), Upload{UserID: "u", PatientID: "p", ContentType: "text/html", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = store.Upload(context.Background(), Upload{UserID: "u", PatientID: "p", ContentType: "image/png", Body: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = store.Upload(context.Background(), Upload{UserID: "u", PatientID: "p", ContentType: "image/png", Body: strings.NewReader("12345")})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUploadWithoutBucket(t *testing.T) {
	store := NewStore(&mockS3Client{}, &mockPresigner{}, "")
	_, err := store.Upload(context.Background(), Upload{UserID: "u", PatientID: "p", ContentType: "image/png", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUploadSurfacesS3Errors(t *testing.T) {
	store := NewStore(&mockS3Client{err: errors.New("access denied")}, &mockPresigner{}, "bucket")
	_, err := store.Upload(context.Background(), Upload{UserID: "u", PatientID: "p", ContentType: "application/dicom", Body: strings.NewReader("DICM")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestContentTypeOK(t *testing.T) {
	for _, ct := range []string{"application/pdf", "IMAGE/PNG", "image/jpeg", "application/dicom"} {
		_, err := ContentTypeOK(ct)
		assert.NoError(t, err, ct)
	}
	_, err := ContentTypeOK("")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
