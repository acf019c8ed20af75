package rum

import (
	"encoding/base64"
	"encoding/json"

	"github.com/google/uuid"
)

// Feed activity payload builders. The chain stores content as
// ActivityPub-flavoured objects: a "Create" activity wrapping a Note
// (post or comment) or a Profile update.

// Image is an inline picture attached to a Note, base64-encoded.
type Image struct {
	MediaType string `json:"mediaType"`
	Content   string `json:"content"`
	Name      string `json:"name,omitempty"`
}

// ImageList tolerates both array and single-object encodings, which
// coexist on chain.
type ImageList []Image

func (l *ImageList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '{' {
		var single Image
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*l = ImageList{single}
		return nil
	}
	var many []Image
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = ImageList(many)
	return nil
}

// InReplyTo links a comment Note to its reply target.
type InReplyTo struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Person identifies the subject of a Profile update by chain address.
type Person struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Object is the content body of an activity.
type Object struct {
	Type      string     `json:"type"`
	ID        string     `json:"id,omitempty"`
	Content   string     `json:"content,omitempty"`
	Name      string     `json:"name,omitempty"`
	Image     ImageList  `json:"image,omitempty"`
	InReplyTo *InReplyTo `json:"inreplyto,omitempty"`
	Describes *Person    `json:"describes,omitempty"`
	Published string     `json:"published,omitempty"`
}

// Origin is provenance metadata marking content mirrored from an external
// channel. The inbound poller checks it to avoid re-importing posts that
// started on the Telegram side.
type Origin struct {
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Activity is a chain content submission.
type Activity struct {
	Type   string  `json:"type"`
	Object *Object `json:"object"`
	Origin *Origin `json:"origin,omitempty"`
}

func encodeImages(images [][]byte) ImageList {
	if len(images) == 0 {
		return nil
	}
	encoded := make(ImageList, 0, len(images))
	for _, img := range images {
		encoded = append(encoded, Image{
			MediaType: "image/jpeg",
			Content:   base64.StdEncoding.EncodeToString(img),
		})
	}
	return encoded
}

// NewPost builds a root post activity with a fresh logical post id.
func NewPost(content string, images [][]byte) *Activity {
	return &Activity{
		Type: "Create",
		Object: &Object{
			Type:    "Note",
			ID:      uuid.NewString(),
			Content: content,
			Image:   encodeImages(images),
		},
	}
}

// Reply builds a comment activity targeting replyID.
func Reply(content string, images [][]byte, replyID string) *Activity {
	return &Activity{
		Type: "Create",
		Object: &Object{
			Type:    "Note",
			ID:      uuid.NewString(),
			Content: content,
			Image:   encodeImages(images),
			InReplyTo: &InReplyTo{
				Type: "Note",
				ID:   replyID,
			},
		},
	}
}

// Profile builds a profile update for the account at address, with an
// optional nickname and avatar.
func Profile(name string, avatar []byte, address string) *Activity {
	obj := &Object{
		Type: "Profile",
		Name: name,
		Describes: &Person{
			Type: "Person",
			ID:   address,
		},
	}
	if avatar != nil {
		obj.Image = encodeImages([][]byte{avatar})
	}
	return &Activity{
		Type:   "Create",
		Object: obj,
	}
}
