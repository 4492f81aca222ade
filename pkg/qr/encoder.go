package qr

import (
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Payload is the structure encoded into an asset QR code. Scanners resolve
// the asset either by the user-facing id or by following the canonical URL.
type Payload struct {
	AssetID  string `json:"assetId"`
	AssetURL string `json:"assetUrl"`
}

// Encoder renders asset payloads to PNG at a fixed error-correction level.
type Encoder struct {
	size int
}

// NewEncoder returns an encoder producing square PNGs of the given pixel size.
func NewEncoder(size int) *Encoder {
	if size <= 0 {
		size = 250
	}
	return &Encoder{size: size}
}

// Encode serializes the payload and renders it at the highest error-correction
// level, trading capacity for damage tolerance on printed labels.
func (e *Encoder) Encode(p Payload) ([]byte, error) {
	if p.AssetID == "" {
		return nil, fmt.Errorf("qr payload requires an asset id")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal qr payload: %w", err)
	}
	png, err := qrcode.Encode(string(raw), qrcode.Highest, e.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr image: %w", err)
	}
	return png, nil
}
