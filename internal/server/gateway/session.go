package gateway

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/dmitrijs2005/docgate/internal/server/models"
)

// Document categories understood by the editor.
const (
	DocumentWord  = "word"
	DocumentCell  = "cell"
	DocumentSlide = "slide"
	DocumentPDF   = "pdf"
)

var documentTypes = map[string]string{
	"doc": DocumentWord, "docx": DocumentWord, "odt": DocumentWord, "rtf": DocumentWord, "txt": DocumentWord,
	"xls": DocumentCell, "xlsx": DocumentCell, "ods": DocumentCell, "csv": DocumentCell,
	"ppt": DocumentSlide, "pptx": DocumentSlide, "odp": DocumentSlide,
	"pdf": DocumentPDF,
}

// FileExtension returns the lower-cased text after the last dot of name,
// or "" when there is none.
func FileExtension(name string) string {
	name = strings.TrimSpace(name)
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// DocumentType maps an extension to its editor category.
func DocumentType(ext string) (string, error) {
	t, ok := documentTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", common.ErrUnsupportedFileType, ext)
	}
	return t, nil
}

type Permissions struct {
	Download bool `json:"download"`
	Edit     bool `json:"edit"`
}

type Document struct {
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	FileType    string      `json:"fileType"`
	Key         string      `json:"key"`
	Permissions Permissions `json:"permissions"`
}

// EditorUser is who the editor shows as the author of changes.
type EditorUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Customization struct {
	Autosave  bool `json:"autosave"`
	Forcesave bool `json:"forcesave"`
}

type EditorConfig struct {
	Mode          string        `json:"mode"`
	Lang          string        `json:"lang"`
	CallbackURL   string        `json:"callbackUrl"`
	User          EditorUser    `json:"user"`
	Customization Customization `json:"customization"`
}

// SessionConfig is the descriptor the browser passes to the editor.
// Token, when set, signs every other field.
type SessionConfig struct {
	Type         string       `json:"type"`
	DocumentType string       `json:"documentType"`
	Document     Document     `json:"document"`
	EditorConfig EditorConfig `json:"editorConfig"`
	Token        string       `json:"token,omitempty"`
}

// Session is the answer to an open request.
type Session struct {
	DocumentServerURL string         `json:"document_server_url"`
	Config            *SessionConfig `json:"config"`
}

// sessionInput is everything buildSessionConfig needs besides the asset.
type sessionInput struct {
	BaseURL string
	Scope   models.AssetScope
	DocKey  string
	User    EditorUser
	Lang    string
}

// buildSessionConfig assembles the unsigned editor descriptor. It has no
// side effects.
func (s *Signer) buildSessionConfig(a *models.Asset, in sessionInput) (*SessionConfig, error) {
	title := a.Attributes.Name
	if title == "" {
		title = "file"
	}
	ext := FileExtension(title)
	docType, err := DocumentType(ext)
	if err != nil {
		return nil, err
	}

	mode := "edit"
	if docType == DocumentPDF {
		mode = "view"
	}

	return &SessionConfig{
		Type:         "desktop",
		DocumentType: docType,
		Document: Document{
			Title:       title,
			URL:         s.CapabilityURL(in.BaseURL, in.Scope, PurposeDownload, in.DocKey),
			FileType:    ext,
			Key:         in.DocKey,
			Permissions: Permissions{Download: true, Edit: mode == "edit"},
		},
		EditorConfig: EditorConfig{
			Mode:          mode,
			Lang:          in.Lang,
			CallbackURL:   s.CapabilityURL(in.BaseURL, in.Scope, PurposeCallback, in.DocKey),
			User:          in.User,
			Customization: Customization{Autosave: true, Forcesave: true},
		},
	}, nil
}
