package discimage

import (
	"bufio"
	"strconv"
	"strings"

	vaulterr "vaultfm/errors"
)

// CueTrack is one TRACK entry of a parsed cue sheet.
type CueTrack struct {
	Number    int
	Title     string
	Performer string
	StartMS   int64 // from this track's INDEX 01
}

// CueSheet is a parsed disc-image track-boundary sheet.
type CueSheet struct {
	Title     string
	Performer string
	FileName  string // the FILE line's referenced container, if present
	Tracks    []CueTrack
}

// ParseCueSheet parses a CUE-sheet-like text format: REM comments are
// skipped, TITLE/PERFORMER may appear in either order at disc or track
// scope, INDEX 00 (pregap) markers are recognized and ignored, and
// INDEX 01 is taken as the track's audible start. Windows line endings
// are tolerated.
func ParseCueSheet(data []byte) (*CueSheet, error) {
	sheet := &CueSheet{}
	var current *CueTrack

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "REM") {
			continue
		}

		fields := splitCueLine(trimmed)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case "TITLE":
			title := unquote(strings.Join(fields[1:], " "))
			if current != nil {
				current.Title = title
			} else {
				sheet.Title = title
			}
		case "PERFORMER":
			performer := unquote(strings.Join(fields[1:], " "))
			if current != nil {
				current.Performer = performer
			} else {
				sheet.Performer = performer
			}
		case "FILE":
			if len(fields) >= 2 {
				sheet.FileName = unquote(fields[1])
			}
		case "TRACK":
			if current != nil {
				sheet.Tracks = append(sheet.Tracks, *current)
			}
			num := 0
			if len(fields) >= 2 {
				num, _ = strconv.Atoi(fields[1])
			}
			current = &CueTrack{Number: num}
		case "INDEX":
			if current == nil || len(fields) < 3 {
				continue
			}
			indexNum, _ := strconv.Atoi(fields[1])
			if indexNum == 0 {
				// Pregap marker — the audible track starts at INDEX 01.
				continue
			}
			ms, err := parseCueTimestamp(fields[2])
			if err != nil {
				return nil, err
			}
			if indexNum == 1 {
				current.StartMS = ms
			}
		}
	}
	if current != nil {
		sheet.Tracks = append(sheet.Tracks, *current)
	}

	if len(sheet.Tracks) == 0 {
		return nil, vaulterr.New(vaulterr.LayoutInvalid, "cue sheet has no TRACK entries")
	}
	return sheet, nil
}

// parseCueTimestamp converts a MM:SS:FF timestamp (FF = 1/75-second
// frame) to milliseconds.
func parseCueTimestamp(ts string) (int64, error) {
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0, vaulterr.New(vaulterr.LayoutInvalid, "malformed cue timestamp "+ts)
	}
	m, err1 := strconv.Atoi(parts[0])
	s, err2 := strconv.Atoi(parts[1])
	f, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, vaulterr.New(vaulterr.LayoutInvalid, "malformed cue timestamp "+ts)
	}
	return int64(m)*60*1000 + int64(s)*1000 + int64(f)*1000/75, nil
}

// splitCueLine tokenizes a cue-sheet line, keeping double-quoted
// substrings (e.g. a TITLE value containing spaces) as single tokens.
func splitCueLine(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				fields = append(fields, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		fields = append(fields, current.String())
	}
	return fields
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
