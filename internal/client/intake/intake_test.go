package intake

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegMagic = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

// jpegOfSize returns a buffer that sniffs as JPEG and is exactly n bytes.
func jpegOfSize(n int) []byte {
	b := make([]byte, n)
	copy(b, jpegMagic)
	return b
}

func pngFile(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestValidate_SizeBoundary(t *testing.T) {
	v := &Validator{MaxFiles: 10, MaxSize: 1024, AllowedTypes: DefaultAllowedTypes}

	accepted, rejections := v.Validate(0, []File{
		{Name: "exact.jpg", Data: jpegOfSize(1024)},
		{Name: "over.jpg", Data: jpegOfSize(1025)},
	})

	require.Len(t, accepted, 1)
	assert.Equal(t, "exact.jpg", accepted[0].Name)
	require.Len(t, rejections, 1)
	assert.Equal(t, Rejection{Category: TooLarge, Level: LevelError, File: "over.jpg", Limit: 1024}, rejections[0])
}

func TestValidate_DefaultSizeBoundary(t *testing.T) {
	v := NewValidator()

	accepted, rejections := v.Validate(0, []File{{Name: "a.jpg", Data: jpegOfSize(DefaultMaxSize)}})
	require.Len(t, accepted, 1)
	require.Empty(t, rejections)

	accepted, rejections = v.Validate(0, []File{{Name: "b.jpg", Data: jpegOfSize(DefaultMaxSize + 1)}})
	require.Empty(t, accepted)
	require.Len(t, rejections, 1)
	require.Equal(t, TooLarge, rejections[0].Category)
}

func TestValidate_EleventhFileRejected(t *testing.T) {
	v := NewValidator()

	files := make([]File, 11)
	for i := range files {
		files[i] = File{Name: "f" + string(rune('a'+i)) + ".jpg", Data: jpegOfSize(64)}
	}

	accepted, rejections := v.Validate(0, files)
	require.Len(t, accepted, 10)
	require.Len(t, rejections, 1)
	assert.Equal(t, MaxFiles, rejections[0].Category)
	assert.Equal(t, LevelWarning, rejections[0].Level)
	assert.Equal(t, "fk.jpg", rejections[0].File)
	for i, u := range accepted {
		assert.Equal(t, files[i].Name, u.Name)
	}
}

func TestValidate_CountsAlreadyPending(t *testing.T) {
	v := NewValidator()

	accepted, rejections := v.Validate(9, []File{
		{Name: "a.jpg", Data: jpegOfSize(10)},
		{Name: "b.jpg", Data: jpegOfSize(10)},
	})
	require.Len(t, accepted, 1)
	require.Len(t, rejections, 1)

	accepted, rejections = v.Validate(12, []File{{Name: "c.jpg", Data: jpegOfSize(10)}})
	require.Empty(t, accepted)
	require.Len(t, rejections, 1)
}

func TestValidate_SniffsContentType(t *testing.T) {
	v := NewValidator()

	accepted, rejections := v.Validate(0, []File{
		{Name: "photo.png", Data: pngFile(t)},
		{Name: "notes.jpg", Data: []byte("just some text pretending to be a photo")},
		{Name: "doc.pdf", Data: []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")},
	})

	require.Len(t, accepted, 1)
	assert.Equal(t, "image/png", accepted[0].ContentType)
	assert.True(t, strings.HasPrefix(accepted[0].Preview, "data:image/png;base64,"))
	assert.NotEmpty(t, accepted[0].ID)
	assert.NotEmpty(t, accepted[0].CorrelationID)
	assert.NotEqual(t, accepted[0].ID, accepted[0].CorrelationID)

	require.Len(t, rejections, 2)
	for _, r := range rejections {
		assert.Equal(t, UnsupportedType, r.Category)
		assert.Equal(t, LevelError, r.Level)
	}
}

func TestQueue(t *testing.T) {
	q := NewQueue(nil)

	accepted, rejections := q.Add(File{Name: "a.jpg", Data: jpegOfSize(8)}, File{Name: "b.jpg", Data: jpegOfSize(8)})
	require.Len(t, accepted, 2)
	require.Empty(t, rejections)
	require.Equal(t, 2, q.Len())

	require.True(t, q.Remove(accepted[0].ID))
	require.False(t, q.Remove(accepted[0].ID))

	list := q.List()
	require.Len(t, list, 1)
	require.Equal(t, "b.jpg", list[0].Name)

	drained := q.Drain()
	require.Len(t, drained, 1)
	require.Zero(t, q.Len())
}

func TestQueue_EnforcesLimitAcrossAdds(t *testing.T) {
	q := NewQueue(&Validator{MaxFiles: 2, MaxSize: 100, AllowedTypes: DefaultAllowedTypes})

	q.Add(File{Name: "a.jpg", Data: jpegOfSize(8)})
	_, rejections := q.Add(File{Name: "b.jpg", Data: jpegOfSize(8)}, File{Name: "c.jpg", Data: jpegOfSize(8)})

	require.Equal(t, 2, q.Len())
	require.Len(t, rejections, 1)
	require.Equal(t, "c.jpg", rejections[0].File)
}
