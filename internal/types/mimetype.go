package types

import (
	"fmt"
	"strings"
)

// MimeGroup is the coarse media family of a MIME type.
type MimeGroup int

const (
	GroupImage MimeGroup = iota
	GroupVideo
	GroupAudio
	GroupText
	GroupDocument
	GroupUnknown
)

var mimeGroupNames = [...]string{
	GroupImage:    "Image",
	GroupVideo:    "Video",
	GroupAudio:    "Audio",
	GroupText:     "Text",
	GroupDocument: "Document",
	GroupUnknown:  "Unknown",
}

func (g MimeGroup) String() string {
	if g < 0 || int(g) >= len(mimeGroupNames) {
		return mimeGroupNames[GroupUnknown]
	}
	return mimeGroupNames[g]
}

// Volume returns the media volume segment content URIs use for the group.
func (g MimeGroup) Volume() string {
	switch g {
	case GroupImage:
		return "images"
	case GroupVideo:
		return "video"
	case GroupAudio:
		return "audio"
	default:
		return "files"
	}
}

// ParseMimeGroup resolves a group by name, case-insensitively.
func ParseMimeGroup(s string) (MimeGroup, error) {
	for i, name := range mimeGroupNames {
		if strings.EqualFold(s, name) {
			return MimeGroup(i), nil
		}
	}
	return GroupUnknown, fmt.Errorf("unknown mime group %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (g MimeGroup) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *MimeGroup) UnmarshalText(b []byte) error {
	parsed, err := ParseMimeGroup(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// MimeType is one of a fixed set of commonly used MIME types.
type MimeType int

const (
	Aac MimeType = iota
	Midi
	Mp3
	OggAudio
	Wav
	WebmAudio
	ThreeGPAudio

	Bmp
	Gif
	Jpeg
	Png
	Svg
	Webp

	Avi
	Mpeg
	Mpeg4
	OggVideo
	WebmVideo

	MsWordDoc
	MsWordDoc2007
	MsExcelSheet
	MsExcelSheet2007
	MsPowerpointPresentation
	MsPowerpointPresentation2007

	Unknown
)

type mimeInfo struct {
	name       string
	id         string
	group      MimeGroup
	extensions []string
	aliases    []string
}

var mimeTable = [...]mimeInfo{
	Aac:          {"Aac", "audio/aac", GroupAudio, []string{"aac"}, []string{"AAC"}},
	Midi:         {"Midi", "audio/midi", GroupAudio, []string{"mid", "midi"}, []string{"MIDI"}},
	Mp3:          {"Mp3", "audio/mpeg", GroupAudio, []string{"mp3"}, []string{"MP3"}},
	OggAudio:     {"OggAudio", "audio/ogg", GroupAudio, []string{"oga", "ogg"}, []string{"OGG"}},
	Wav:          {"Wav", "audio/wav", GroupAudio, []string{"wav"}, []string{"WAV"}},
	WebmAudio:    {"WebmAudio", "audio/webm", GroupAudio, []string{"weba"}, []string{"WEBM Audio"}},
	ThreeGPAudio: {"ThreeGPAudio", "audio/3gpp", GroupAudio, []string{"3gp"}, []string{"3GP"}},

	Bmp:  {"Bmp", "image/bmp", GroupImage, []string{"bmp"}, []string{"BMP"}},
	Gif:  {"Gif", "image/gif", GroupImage, []string{"gif"}, []string{"GIF"}},
	Jpeg: {"Jpeg", "image/jpeg", GroupImage, []string{"jpeg", "jpg"}, []string{"JPEG", "JPG"}},
	Png:  {"Png", "image/png", GroupImage, []string{"png"}, []string{"PNG"}},
	Svg:  {"Svg", "image/svg+xml", GroupImage, []string{"svg"}, []string{"SVG"}},
	Webp: {"Webp", "image/webp", GroupImage, []string{"webp"}, []string{"WEBP Image"}},

	Avi:       {"Avi", "video/x-msvideo", GroupVideo, []string{"avi"}, []string{"AVI"}},
	Mpeg:      {"Mpeg", "video/mpeg", GroupVideo, []string{"mpeg"}, []string{"MPEG"}},
	Mpeg4:     {"Mpeg4", "video/mp4", GroupVideo, []string{"mp4"}, []string{"MP4"}},
	OggVideo:  {"OggVideo", "video/ogg", GroupVideo, []string{"ogv"}, []string{"OGG"}},
	WebmVideo: {"WebmVideo", "video/webm", GroupVideo, []string{"webm"}, []string{"WEBM Video"}},

	MsWordDoc: {"MsWordDoc", "application/msword", GroupDocument,
		[]string{"doc", "dot"}, []string{"MS Word Document"}},
	MsWordDoc2007: {"MsWordDoc2007", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", GroupDocument,
		[]string{"docx", "dotx"}, []string{"MS Word Document (New)"}},
	MsExcelSheet: {"MsExcelSheet", "application/vnd.ms-excel", GroupDocument,
		[]string{"xls", "xlt", "xla"}, []string{"MS Excel Sheet"}},
	MsExcelSheet2007: {"MsExcelSheet2007", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", GroupDocument,
		[]string{"xlsx"}, []string{"MS Excel Sheet (New)"}},
	MsPowerpointPresentation: {"MsPowerpointPresentation", "application/vnd.ms-powerpoint", GroupDocument,
		[]string{"ppt", "pot", "pps", "ppa"}, []string{"MS Powerpoint Presentation"}},
	MsPowerpointPresentation2007: {"MsPowerpointPresentation2007", "application/vnd.openxmlformats-officedocument.presentationml.presentation", GroupDocument,
		[]string{"pptx", "potx", "ppsx"}, []string{"MS Powerpoint Presentation (New)"}},

	Unknown: {"Unknown", "", GroupUnknown, nil, nil},
}

func (m MimeType) info() mimeInfo {
	if m < 0 || int(m) >= len(mimeTable) {
		return mimeTable[Unknown]
	}
	return mimeTable[m]
}

// ID returns the MIME string, e.g. "image/jpeg". Unknown has an empty id.
func (m MimeType) ID() string { return m.info().id }

// Group returns the media family.
func (m MimeType) Group() MimeGroup { return m.info().group }

// Extensions returns the file extensions mapped to m, without dots.
func (m MimeType) Extensions() []string {
	return append([]string(nil), m.info().extensions...)
}

// Aliases returns human-facing names for m.
func (m MimeType) Aliases() []string {
	return append([]string(nil), m.info().aliases...)
}

// DisplayName returns the first alias, or "Unknown".
func (m MimeType) DisplayName() string {
	if a := m.info().aliases; len(a) > 0 {
		return a[0]
	}
	return mimeTable[Unknown].name
}

// String returns the enum name.
func (m MimeType) String() string { return m.info().name }

// Known reports whether m is anything other than Unknown.
func (m MimeType) Known() bool {
	return m >= 0 && m < Unknown
}

// KnownMimeTypes returns every MIME type except Unknown.
func KnownMimeTypes() []MimeType {
	out := make([]MimeType, 0, int(Unknown))
	for m := MimeType(0); m < Unknown; m++ {
		out = append(out, m)
	}
	return out
}

// KnownMimeTypesOf returns the known MIME types in group g.
func KnownMimeTypesOf(g MimeGroup) []MimeType {
	var out []MimeType
	for _, m := range KnownMimeTypes() {
		if m.Group() == g {
			out = append(out, m)
		}
	}
	return out
}

// MimeTypeOf resolves a MIME string case-insensitively. Unrecognized
// strings resolve to Unknown.
func MimeTypeOf(id string) MimeType {
	for i, info := range mimeTable {
		if strings.EqualFold(info.id, id) {
			return MimeType(i)
		}
	}
	return Unknown
}

// MimeTypeOfExtension resolves a file extension, with or without the leading
// dot. Unrecognized extensions resolve to Unknown.
func MimeTypeOfExtension(ext string) MimeType {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return Unknown
	}
	for i, info := range mimeTable {
		for _, e := range info.extensions {
			if e == ext {
				return MimeType(i)
			}
		}
	}
	return Unknown
}

// ParseMimeType resolves an enum name ("Jpeg") case-insensitively, falling
// back to a MIME string ("image/jpeg").
func ParseMimeType(s string) (MimeType, error) {
	for i, info := range mimeTable {
		if strings.EqualFold(info.name, s) {
			return MimeType(i), nil
		}
	}
	if m := MimeTypeOf(s); m.Known() {
		return m, nil
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownMimeType, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m MimeType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MimeType) UnmarshalText(b []byte) error {
	parsed, err := ParseMimeType(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
