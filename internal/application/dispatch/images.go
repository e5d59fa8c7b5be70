package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// ImageStore uploads an embedded image and returns a URL push clients can fetch.
type ImageStore interface {
	UploadImage(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

var errNotAnImage = errors.New("embedded payload is not an image")

// decodeEmbeddedImage accepts a data URI or a bare base64 string.
func decodeEmbeddedImage(ref string) ([]byte, string, error) {
	ref = strings.TrimSpace(ref)
	declared := ""
	if strings.HasPrefix(ref, "data:") {
		meta, payload, ok := strings.Cut(ref[len("data:"):], ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("malformed data URI")
		}
		declared = strings.TrimSuffix(meta, ";base64")
		ref = payload
	}

	data, err := base64.StdEncoding.DecodeString(ref)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(ref); err != nil {
			return nil, "", fmt.Errorf("decode base64 image: %w", err)
		}
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		if !strings.HasPrefix(declared, "image/") {
			return nil, "", errNotAnImage
		}
		ct = declared
	}
	return data, ct, nil
}

func imageKey(notificationID, contentType string) string {
	ext := ".img"
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		ext = exts[0]
	}
	return "notifications/" + notificationID + "/image" + ext
}
