package index

import (
	"fmt"
	"strconv"
	"strings"
)

// Field identifies one weighted column of a segment document.
type Field int

const (
	FieldText Field = iota
	FieldSpeaker
	FieldGuest
	FieldTitle

	numFields
)

var fieldNames = [numFields]string{"text", "speaker", "guest", "title"}

// Weights favour what was said over who said it and where.
var fieldWeights = [numFields]float64{4.0, 2.0, 1.5, 1.0}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "any"
	}
	return fieldNames[f]
}

func fieldByName(name string) (Field, bool) {
	for i, n := range fieldNames {
		if strings.EqualFold(n, name) {
			return Field(i), true
		}
	}
	return -1, false
}

// Document is one indexed segment.
type Document struct {
	FolderName string
	Position   int
	Text       string
	Speaker    string
	Guest      string
	Title      string
}

// ID returns "<folderName>:<position>".
func (d Document) ID() string {
	return DocumentID(d.FolderName, d.Position)
}

func (d Document) field(f Field) string {
	switch f {
	case FieldText:
		return d.Text
	case FieldSpeaker:
		return d.Speaker
	case FieldGuest:
		return d.Guest
	case FieldTitle:
		return d.Title
	}
	return ""
}

// DocumentID builds the identifier of the segment at position in folder.
func DocumentID(folder string, position int) string {
	return folder + ":" + strconv.Itoa(position)
}

// ParseDocumentID splits an identifier produced by DocumentID.
func ParseDocumentID(id string) (folder string, position int, err error) {
	i := strings.LastIndexByte(id, ':')
	if i < 0 {
		return "", 0, fmt.Errorf("malformed document id %q", id)
	}
	position, err = strconv.Atoi(id[i+1:])
	if err != nil || position < 0 {
		return "", 0, fmt.Errorf("malformed document id %q", id)
	}
	return id[:i], position, nil
}
