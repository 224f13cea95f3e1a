package checklist

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ItemType is the kind of answer a checklist item expects.
type ItemType string

const (
	ItemText      ItemType = "text"
	ItemNumber    ItemType = "number"
	ItemBoolean   ItemType = "boolean"
	ItemFile      ItemType = "file"
	ItemPhoto     ItemType = "photo"
	ItemSignature ItemType = "signature"
)

// ParseItemType validates an item type name.
func ParseItemType(s string) (ItemType, error) {
	switch t := ItemType(strings.ToLower(strings.TrimSpace(s))); t {
	case ItemText, ItemNumber, ItemBoolean, ItemFile, ItemPhoto, ItemSignature:
		return t, nil
	}
	return "", fmt.Errorf("unknown item type %q (valid: text, number, boolean, file, photo, signature)", s)
}

// Value is a typed response payload. There is exactly one implementation per
// ItemType; the set is closed.
type Value interface {
	Kind() ItemType
	validate() error
}

type TextValue struct {
	Text string `json:"text"`
}

type NumberValue struct {
	Number float64 `json:"number"`
}

type BooleanValue struct {
	Checked bool `json:"checked"`
}

// FileValue references an uploaded file. Storage itself lives elsewhere.
type FileValue struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	StorageKey  string `json:"storage_key"`
}

type PhotoValue struct {
	StorageKey string `json:"storage_key"`
	Caption    string `json:"caption,omitempty"`
}

type SignatureValue struct {
	SignedBy   string `json:"signed_by"`
	StorageKey string `json:"storage_key,omitempty"`
}

func (TextValue) Kind() ItemType      { return ItemText }
func (NumberValue) Kind() ItemType    { return ItemNumber }
func (BooleanValue) Kind() ItemType   { return ItemBoolean }
func (FileValue) Kind() ItemType      { return ItemFile }
func (PhotoValue) Kind() ItemType     { return ItemPhoto }
func (SignatureValue) Kind() ItemType { return ItemSignature }

func (v TextValue) validate() error {
	if strings.TrimSpace(v.Text) == "" {
		return fmt.Errorf("text value must not be empty")
	}
	return nil
}

func (v NumberValue) validate() error {
	if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
		return fmt.Errorf("number value must be finite, got %v", v.Number)
	}
	return nil
}

func (BooleanValue) validate() error { return nil }

func (v FileValue) validate() error {
	if v.FileName == "" || v.StorageKey == "" {
		return fmt.Errorf("file value needs a file name and storage key")
	}
	if v.SizeBytes < 0 {
		return fmt.Errorf("file size must not be negative")
	}
	return nil
}

func (v PhotoValue) validate() error {
	if v.StorageKey == "" {
		return fmt.Errorf("photo value needs a storage key")
	}
	return nil
}

func (v SignatureValue) validate() error {
	if strings.TrimSpace(v.SignedBy) == "" {
		return fmt.Errorf("signature value needs a signer")
	}
	return nil
}

// ValidateValue checks that v answers an item of the given type.
func ValidateValue(itemType ItemType, v Value) error {
	if v == nil {
		return fmt.Errorf("missing value for %s item", itemType)
	}
	if v.Kind() != itemType {
		return fmt.Errorf("item expects a %s value, got %s", itemType, v.Kind())
	}
	return v.validate()
}

type envelope struct {
	Type ItemType        `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodeValue renders a value as a self-describing JSON document.
func EncodeValue(v Value) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s value: %w", v.Kind(), err)
	}
	out, err := json.Marshal(envelope{Type: v.Kind(), Data: data})
	if err != nil {
		return "", fmt.Errorf("failed to encode %s value: %w", v.Kind(), err)
	}
	return string(out), nil
}

// DecodeValue parses a document produced by EncodeValue.
func DecodeValue(s string) (Value, error) {
	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}

	var v Value
	var err error
	switch env.Type {
	case ItemText:
		var tv TextValue
		err = json.Unmarshal(env.Data, &tv)
		v = tv
	case ItemNumber:
		var nv NumberValue
		err = json.Unmarshal(env.Data, &nv)
		v = nv
	case ItemBoolean:
		var bv BooleanValue
		err = json.Unmarshal(env.Data, &bv)
		v = bv
	case ItemFile:
		var fv FileValue
		err = json.Unmarshal(env.Data, &fv)
		v = fv
	case ItemPhoto:
		var pv PhotoValue
		err = json.Unmarshal(env.Data, &pv)
		v = pv
	case ItemSignature:
		var sv SignatureValue
		err = json.Unmarshal(env.Data, &sv)
		v = sv
	default:
		return nil, fmt.Errorf("unknown value type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s value: %w", env.Type, err)
	}
	return v, nil
}

// ParseValue builds a value from command-line input for the given item type.
// File and photo values take the storage key; signatures take the signer.
func ParseValue(itemType ItemType, raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	switch itemType {
	case ItemText:
		return TextValue{Text: raw}, nil
	case ItemNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", raw)
		}
		v := NumberValue{Number: n}
		if err := v.validate(); err != nil {
			return nil, err
		}
		return v, nil
	case ItemBoolean:
		switch strings.ToLower(raw) {
		case "true", "yes", "y", "1", "pass":
			return BooleanValue{Checked: true}, nil
		case "false", "no", "n", "0", "fail":
			return BooleanValue{Checked: false}, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", raw)
	case ItemFile:
		name := raw
		if i := strings.LastIndex(raw, "/"); i >= 0 {
			name = raw[i+1:]
		}
		return FileValue{FileName: name, StorageKey: raw}, nil
	case ItemPhoto:
		return PhotoValue{StorageKey: raw}, nil
	case ItemSignature:
		return SignatureValue{SignedBy: raw}, nil
	}
	return nil, fmt.Errorf("unknown item type %q", itemType)
}

// Display renders a value for terminal output.
func Display(v Value) string {
	switch tv := v.(type) {
	case TextValue:
		return tv.Text
	case NumberValue:
		return strconv.FormatFloat(tv.Number, 'f', -1, 64)
	case BooleanValue:
		if tv.Checked {
			return "yes"
		}
		return "no"
	case FileValue:
		return tv.FileName
	case PhotoValue:
		if tv.Caption != "" {
			return tv.Caption
		}
		return tv.StorageKey
	case SignatureValue:
		return "signed by " + tv.SignedBy
	}
	return ""
}
