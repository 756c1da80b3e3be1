package vault

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var objectNamePattern = regexp.MustCompile(`^\d{13}-[0-9a-f]{8}\.pdf$`)

func TestSelectRejectsOversizedAndUnlistedFiles(t *testing.T) {
	gw := newFakeGateway()
	notices := &Notices{}
	upload := NewUpload(gw, testSession(), notices, UploadPolicy{})

	err := upload.Select(File{Name: "big.pdf", ContentType: "application/pdf", Size: 15 * 1000 * 1000})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "File size must be less than 10MB", validation.Message)
	assert.Equal(t, Idle, upload.State())

	err = upload.Select(File{Name: "notes.docx", ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Size: 1024})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "Please select a PDF or image file (JPEG, PNG)", validation.Message)
	assert.Equal(t, Idle, upload.State())

	assert.False(t, upload.CanSubmit("Cert A"))
	assert.Empty(t, gw.calls, "validation issues no remote call")
	assert.Len(t, notices.Drain(), 2)
}

func TestSelectBoundaryAndAliases(t *testing.T) {
	upload := NewUpload(newFakeGateway(), testSession(), nil, UploadPolicy{})

	require.NoError(t, upload.Select(File{Name: "exact.png", ContentType: "image/png", Size: MaxUploadSize}))
	require.NoError(t, upload.Select(File{Name: "photo.jpg", ContentType: "image/jpg", Size: 10}))
	require.NoError(t, upload.Select(File{Name: "scan.pdf", ContentType: "Application/PDF; charset=binary", Size: 10}))
	assert.Equal(t, FileSelected, upload.State())

	err := upload.Select(File{Name: "over.png", ContentType: "image/png", Size: MaxUploadSize + 1})
	assert.Error(t, err)
	assert.Equal(t, FileSelected, upload.State(), "rejection keeps the staged file")
	assert.True(t, upload.CanSubmit("x"))
}

func TestSelectSniffsUndeclaredType(t *testing.T) {
	upload := NewUpload(newFakeGateway(), testSession(), nil, UploadPolicy{})

	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	require.NoError(t, upload.Select(File{Name: "scan", Size: int64(len(pdf)), Content: bytes.NewReader(pdf)}))
	assert.Equal(t, "application/pdf", upload.file.ContentType)

	err := upload.Select(File{Name: "notes.txt", Size: 5, Content: bytes.NewReader([]byte("hello"))})
	assert.Error(t, err)
}

func TestCanSubmitNeedsTitleAndFile(t *testing.T) {
	upload := NewUpload(newFakeGateway(), testSession(), nil, UploadPolicy{})
	assert.False(t, upload.CanSubmit("Cert A"))

	require.NoError(t, upload.Select(pdfFile(1024)))
	assert.False(t, upload.CanSubmit("   "))
	assert.True(t, upload.CanSubmit("Cert A"))

	_, err := upload.Submit(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestSubmitStoresSignsAndInserts(t *testing.T) {
	gw := newFakeGateway()
	session := testSession()
	notices := &Notices{}
	upload := NewUpload(gw, session, notices, UploadPolicy{})

	require.NoError(t, upload.Select(pdfFile(1048576)))
	cert, err := upload.Submit(context.Background(), "Cert A", "")
	require.NoError(t, err)

	assert.Equal(t, Succeeded, upload.State())
	assert.Equal(t, []string{"store", "sign", "insert"}, gw.calls)
	assert.Equal(t, []Notice{{Level: LevelSuccess, Message: "Certificate uploaded successfully!"}}, notices.Drain())

	lib := NewLibrary(gw, session, nil)
	require.NoError(t, lib.Load(context.Background()))
	certs := lib.Certificates()
	require.Len(t, certs, 1)
	assert.Equal(t, cert.ID, certs[0].ID)
	assert.Equal(t, int64(1048576), certs[0].FileSize)
	assert.Equal(t, "transcript.pdf", certs[0].FileName)
	assert.Equal(t, session.UserID, certs[0].OwnerID)
	assert.Nil(t, certs[0].Description)

	name, err := ObjectName(certs[0].FileURL)
	require.NoError(t, err)
	assert.Regexp(t, objectNamePattern, name)
	assert.Contains(t, gw.objects, session.UserID.String()+"/"+name)
}

func TestSubmitRequestsOneYearLink(t *testing.T) {
	gw := &ttlRecorder{fakeGateway: newFakeGateway()}
	upload := NewUpload(gw, testSession(), nil, UploadPolicy{})

	require.NoError(t, upload.Select(pdfFile(10)))
	_, err := upload.Submit(context.Background(), "Cert A", "")
	require.NoError(t, err)
	assert.Equal(t, float64(31536000), gw.ttl.Seconds())
}

func TestSubmitFailureAtEachStep(t *testing.T) {
	cases := []struct {
		name    string
		arrange func(*fakeGateway)
		calls   []string
		message string
	}{
		{
			name:    "store",
			arrange: func(f *fakeGateway) { f.storeErr = remoteError{message: "Bucket not found"} },
			calls:   []string{"store"},
			message: "Bucket not found",
		},
		{
			name:    "sign error",
			arrange: func(f *fakeGateway) { f.signErr = errors.New("dial tcp: refused") },
			calls:   []string{"store", "sign"},
			message: "Failed to upload certificate",
		},
		{
			name:    "empty link",
			arrange: func(f *fakeGateway) { f.emptyLink = true },
			calls:   []string{"store", "sign"},
			message: "Failed to generate download URL",
		},
		{
			name:    "insert",
			arrange: func(f *fakeGateway) { f.insertErr = errors.New("constraint violation") },
			calls:   []string{"store", "sign", "insert"},
			message: "Failed to upload certificate",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newFakeGateway()
			tc.arrange(gw)
			notices := &Notices{}
			upload := NewUpload(gw, testSession(), notices, UploadPolicy{})

			require.NoError(t, upload.Select(pdfFile(64)))
			_, err := upload.Submit(context.Background(), "Cert A", "desc")
			require.Error(t, err)

			assert.Equal(t, Failed, upload.State())
			assert.Equal(t, tc.calls, gw.calls)
			assert.Empty(t, gw.certs, "no record on failure")
			assert.Equal(t, []Notice{{Level: LevelError, Message: tc.message}}, notices.Drain())
		})
	}
}

func TestFailedUploadCanBeResubmitted(t *testing.T) {
	gw := newFakeGateway()
	gw.insertErr = errors.New("temporary")
	upload := NewUpload(gw, testSession(), nil, UploadPolicy{})

	require.NoError(t, upload.Select(pdfFile(32)))
	_, err := upload.Submit(context.Background(), "Cert A", "")
	require.Error(t, err)
	require.Equal(t, Failed, upload.State())

	gw.insertErr = nil
	cert, err := upload.Submit(context.Background(), "Cert A", "")
	require.NoError(t, err)
	assert.Equal(t, Succeeded, upload.State())
	assert.Equal(t, int64(32), cert.FileSize)

	stored := gw.objects[gw.certs[0].OwnerID.String()+"/"+mustObjectName(t, cert.FileURL)]
	assert.Len(t, stored, 32, "content rewound for the second attempt")
}

func TestSucceededUploadIsNotSubmittedTwice(t *testing.T) {
	gw := newFakeGateway()
	upload := NewUpload(gw, testSession(), nil, UploadPolicy{})

	require.NoError(t, upload.Select(pdfFile(16)))
	_, err := upload.Submit(context.Background(), "Cert A", "")
	require.NoError(t, err)
	assert.False(t, upload.CanSubmit("Cert A"))

	_, err = upload.Submit(context.Background(), "Cert A", "")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, Succeeded, upload.State())
	assert.Equal(t, []string{"store", "sign", "insert"}, gw.calls)
	assert.Len(t, gw.certs, 1)

	require.NoError(t, upload.Select(pdfFile(8)))
	assert.True(t, upload.CanSubmit("Cert B"), "a new file starts a new upload")
}

func TestSubmitWithoutSession(t *testing.T) {
	gw := newFakeGateway()
	upload := NewUpload(gw, Session{}, nil, UploadPolicy{})

	require.NoError(t, upload.Select(pdfFile(10)))
	_, err := upload.Submit(context.Background(), "Cert A", "")
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Empty(t, gw.calls)
}

// --- helpers & fakes ---

func pdfFile(size int) File {
	data := bytes.Repeat([]byte{'x'}, size)
	copy(data, "%PDF-1.7")
	return File{Name: "transcript.pdf", ContentType: "application/pdf", Size: int64(size), Content: bytes.NewReader(data)}
}

func mustObjectName(t *testing.T, fileURL string) string {
	t.Helper()
	name, err := ObjectName(fileURL)
	if err != nil {
		t.Fatalf("object name: %v", err)
	}
	return name
}

type ttlRecorder struct {
	*fakeGateway
	ttl time.Duration
}

func (r *ttlRecorder) SignURL(ctx context.Context, session Session, path string, ttl time.Duration) (string, error) {
	r.ttl = ttl
	return r.fakeGateway.SignURL(ctx, session, path, ttl)
}
