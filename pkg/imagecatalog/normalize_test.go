package imagecatalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeContainerName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Alice_1", "alice1"},
		{"bob", "bob"},
		{"Mixed-Case-42", "mixed-case-42"},
		{"a.b@c d", "abcd"},
		{"ÄÖü", ""},
		{"__", ""},
		{"", ""},
		{"user/name", "username"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := SanitizeContainerName(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, SanitizeContainerName(got), "sanitizing is idempotent")
		})
	}
}

func TestContainerFor(t *testing.T) {
	assert.Equal(t, "alice1", ContainerFor("Alice_1", DefaultContainer))
	assert.Equal(t, DefaultContainer, ContainerFor("!!!", DefaultContainer))
	assert.Equal(t, "fallback", ContainerFor("", "fallback"))
}

func TestBlobFileNameAndStripExt(t *testing.T) {
	assert.Equal(t, "town.png", BlobFileName("town"))
	assert.Equal(t, "town", StripExt(BlobFileName("town")))
	assert.Equal(t, "my.town", StripExt("my.town.png"))
	assert.Equal(t, "README", StripExt("README"))
	assert.Equal(t, "", StripExt(".png"))
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "Alice_1-map-town", RecordID("Alice_1", "map", "town"))
	assert.Equal(t, "bob--cat", RecordID("bob", "", "cat"))
}

func TestSaveImageMetadataRequestRecord(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		rec := SaveImageMetadataRequest{Owner: "Alice_1", Category: "map", ImageName: "town"}.record()
		assert.Equal(t, "Alice_1", rec.UserName)
		assert.Equal(t, "Alice_1-map-town", rec.ID)
		assert.NotNil(t, rec.ImageBytes)
		assert.Empty(t, rec.ImageBytes)
	})

	t.Run("UserNameDrivesDerivedID", func(t *testing.T) {
		rec := SaveImageMetadataRequest{Owner: "Alice_1", UserName: "carol", Category: "map", ImageName: "town"}.record()
		assert.Equal(t, "carol", rec.UserName)
		assert.Equal(t, "carol-map-town", rec.ID)
	})

	t.Run("ExplicitID", func(t *testing.T) {
		rec := SaveImageMetadataRequest{Owner: "Alice_1", ID: "custom", ImageName: "town"}.record()
		assert.Equal(t, "custom", rec.ID)
	})
}

func TestImageRecordClone(t *testing.T) {
	rec := &ImageRecord{ID: "a", ImageBytes: []byte{1, 2}}
	c := rec.Clone()
	c.ImageBytes[0] = 9
	assert.Equal(t, byte(1), rec.ImageBytes[0])
	assert.Nil(t, (*ImageRecord)(nil).Clone())
}

func TestImageURL(t *testing.T) {
	rec := &ImageRecord{ImageBytes: []byte("hi")}
	assert.Equal(t, "data:image/png;base64,aGk=", rec.ImageURL(""))
	assert.Equal(t, "data:image/jpeg;base64,aGk=", rec.ImageURL("image/jpeg"))
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name   string
		req    any
		fields []string
	}{
		{"Valid", SaveImageRequest{Owner: "a", ImageName: "town", ImageBytes: []byte{1}}, nil},
		{"MissingOwner", SaveImageRequest{ImageName: "town", ImageBytes: []byte{1}}, []string{"Owner"}},
		{"EmptyBytes", SaveImageRequest{Owner: "a", ImageName: "town", ImageBytes: []byte{}}, []string{"ImageBytes"}},
		{"NilBytes", UploadImageRequest{Owner: "a", ImageName: "town"}, []string{"ImageBytes"}},
		{"SlashInName", SaveImageMetadataRequest{Owner: "a", ImageName: "maps/town"}, []string{"ImageName"}},
		{"BackslashInName", SaveImageMetadataRequest{Owner: "a", ImageName: `maps\town`}, []string{"ImageName"}},
		{"Everything", SaveImageRequest{}, []string{"Owner", "ImageName", "ImageBytes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(tt.req)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			for _, field := range tt.fields {
				assert.Contains(t, err.Error(), "invalid "+field)
			}
		})
	}
}
