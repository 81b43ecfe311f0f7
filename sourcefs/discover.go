// Package sourcefs implements the source file collaborator (§6): it
// walks a release's staging directory, tags each file with its format
// by extension, and separates audio from sidecar metadata so the
// layout planner never has to touch the filesystem itself.
package sourcefs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	vaulterr "vaultfm/errors"
	"vaultfm/layout"
	"vaultfm/model"
)

var extensionFormats = map[string]model.FileFormat{
	".flac": model.FormatFLAC,
	".wav":  model.FormatWAV,
	".mp3":  model.FormatMP3,
	".m4a":  model.FormatM4A,
	".aac":  model.FormatAAC,
	".ogg":  model.FormatOGG,
	".cue":  model.FormatCueSheet,
	".log":  model.FormatRipLog,
	".jpg":  model.FormatCoverArt,
	".jpeg": model.FormatCoverArt,
	".png":  model.FormatCoverArt,
}

// formatFor maps a file extension to its FileFormat tag. Unrecognized
// extensions are reported so a caller can decide whether to skip or fail.
func formatFor(path string) (model.FileFormat, bool) {
	f, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Discover walks dir (non-recursively — a release's staging directory
// is expected to be flat) and returns every recognized file as a
// layout.SourceFile with its relative path and size, skipping
// directories and unrecognized extensions.
func Discover(dir string) ([]layout.SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.TransientIO, "read source directory "+dir, err)
	}

	var out []layout.SourceFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := formatFor(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, vaulterr.Wrap(vaulterr.TransientIO, "stat "+entry.Name(), err)
		}
		out = append(out, layout.SourceFile{
			RelativePath: entry.Name(),
			SizeBytes:    info.Size(),
			Format:       format,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out, nil
}

// FindCueSheet returns the single .cue sidecar among files, or an error
// if none or more than one is present — disc-image mode requires
// exactly one track-boundary sheet.
func FindCueSheet(files []layout.SourceFile) (layout.SourceFile, error) {
	var found []layout.SourceFile
	for _, f := range files {
		if f.Format == model.FormatCueSheet {
			found = append(found, f)
		}
	}
	switch len(found) {
	case 0:
		return layout.SourceFile{}, vaulterr.New(vaulterr.LayoutInvalid, "disc-image import requires exactly one .cue sheet, found none")
	case 1:
		return found[0], nil
	default:
		return layout.SourceFile{}, vaulterr.New(vaulterr.LayoutInvalid, "disc-image import requires exactly one .cue sheet, found multiple")
	}
}

// SplitContainer separates the single audio container from every other
// (sidecar) file in a disc-image-mode release.
func SplitContainer(files []layout.SourceFile) (container layout.SourceFile, sidecars []layout.SourceFile, err error) {
	var audio []layout.SourceFile
	for _, f := range files {
		if f.Format.IsAudio() {
			audio = append(audio, f)
		} else {
			sidecars = append(sidecars, f)
		}
	}
	if len(audio) != 1 {
		return layout.SourceFile{}, nil, vaulterr.New(vaulterr.LayoutInvalid,
			"disc-image import requires exactly one audio container file")
	}
	return audio[0], sidecars, nil
}
