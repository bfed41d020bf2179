package tree

import (
	"path"
	"strings"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

// Class is the outcome of classifying one directory entry. Every entry gets
// exactly one class.
type Class int

const (
	ClassIgnored    Class = iota // other files
	ClassDocument                // .mdx / .md documents
	ClassAttachment              // image files, listed on the parent
	ClassDirectory               // visible directories, recursed into
	ClassReserved                // meta/readme documents
	ClassHiddenDir               // directories starting with "."
)

func (c Class) String() string {
	switch c {
	case ClassDocument:
		return "document"
	case ClassAttachment:
		return "attachment"
	case ClassDirectory:
		return "directory"
	case ClassReserved:
		return "reserved"
	case ClassHiddenDir:
		return "hidden"
	default:
		return "ignored"
	}
}

// Visible reports whether entries of this class appear in the tree, either
// as children or as attachments.
func (c Class) Visible() bool {
	return c == ClassDocument || c == ClassAttachment || c == ClassDirectory
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
}

var reservedNames = map[string]bool{
	"meta.mdx": true, "meta.md": true, "readme.mdx": true, "readme.md": true,
}

// Classify applies the tree policy to one entry, in precedence order: image
// files, then documents, then directories. Everything else is excluded.
func Classify(name string, kind handle.Kind) Class {
	if kind == handle.KindDirectory {
		if strings.HasPrefix(name, ".") {
			return ClassHiddenDir
		}
		return ClassDirectory
	}
	if IsImage(name) {
		return ClassAttachment
	}
	if hasDocumentExt(name) {
		if reservedNames[strings.ToLower(name)] {
			return ClassReserved
		}
		return ClassDocument
	}
	return ClassIgnored
}

// IsImage reports whether name has an image extension (case-insensitive).
func IsImage(name string) bool {
	return imageExts[strings.ToLower(path.Ext(name))]
}

// IsDocument reports whether a file called name is a searchable document.
func IsDocument(name string) bool {
	return Classify(name, handle.KindFile) == ClassDocument
}

// Document extensions are matched case-sensitively.
func hasDocumentExt(name string) bool {
	return strings.HasSuffix(name, ".mdx") || strings.HasSuffix(name, ".md")
}

// AttachmentType groups attachments by how they can be previewed.
type AttachmentType int

const (
	AttachmentOther AttachmentType = iota
	AttachmentImage
	AttachmentText
	AttachmentArchive
)

func (a AttachmentType) String() string {
	switch a {
	case AttachmentImage:
		return "image"
	case AttachmentText:
		return "text"
	case AttachmentArchive:
		return "archive"
	default:
		return "other"
	}
}

var attachmentTypes = map[string]AttachmentType{
	".jpg": AttachmentImage, ".jpeg": AttachmentImage, ".png": AttachmentImage,
	".gif": AttachmentImage, ".webp": AttachmentImage, ".svg": AttachmentImage,
	".txt": AttachmentText, ".log": AttachmentText, ".json": AttachmentText,
	".xml": AttachmentText, ".csv": AttachmentText, ".yaml": AttachmentText, ".yml": AttachmentText,
	".zip": AttachmentArchive, ".rar": AttachmentArchive, ".7z": AttachmentArchive,
	".tar": AttachmentArchive, ".gz": AttachmentArchive,
}

// AttachmentKind maps a file name to its preview type by extension.
func AttachmentKind(name string) AttachmentType {
	return attachmentTypes[strings.ToLower(path.Ext(name))]
}
