package discimage

import "testing"

func TestParseCueSheetBasic(t *testing.T) {
	cue := []byte(`REM GENRE Rock
PERFORMER "Test Artist"
TITLE "Test Album"
FILE "album.flac" WAVE
  TRACK 01 AUDIO
    TITLE "First Song"
    PERFORMER "Test Artist"
    INDEX 00 00:00:00
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    TITLE "Second Song"
    INDEX 00 03:58:50
    INDEX 01 04:00:00
`)

	sheet, err := ParseCueSheet(cue)
	if err != nil {
		t.Fatalf("ParseCueSheet: %v", err)
	}
	if sheet.Title != "Test Album" || sheet.Performer != "Test Artist" {
		t.Fatalf("disc-level metadata mismatch: %+v", sheet)
	}
	if sheet.FileName != "album.flac" {
		t.Fatalf("FileName = %q, want %q", sheet.FileName, "album.flac")
	}
	if len(sheet.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(sheet.Tracks))
	}
	if sheet.Tracks[0].Title != "First Song" || sheet.Tracks[0].StartMS != 0 {
		t.Fatalf("track 1 mismatch: %+v", sheet.Tracks[0])
	}
	wantMS := int64(4*60*1000) // 04:00:00
	if sheet.Tracks[1].StartMS != wantMS {
		t.Fatalf("track 2 StartMS = %d, want %d", sheet.Tracks[1].StartMS, wantMS)
	}
	if sheet.Tracks[1].Performer != "" {
		t.Fatalf("expected track 2 with no PERFORMER line to have an empty performer, got %q", sheet.Tracks[1].Performer)
	}
}

func TestParseCueSheetRejectsNoTracks(t *testing.T) {
	if _, err := ParseCueSheet([]byte("TITLE \"Empty\"\n")); err == nil {
		t.Fatal("expected an error for a sheet with no TRACK entries")
	}
}

func TestParseCueSheetIgnoresPregap(t *testing.T) {
	cue := []byte(`TRACK 01 AUDIO
  INDEX 00 00:00:00
  INDEX 01 00:02:00
`)
	sheet, err := ParseCueSheet(cue)
	if err != nil {
		t.Fatalf("ParseCueSheet: %v", err)
	}
	wantMS := int64(2 * 1000)
	if sheet.Tracks[0].StartMS != wantMS {
		t.Fatalf("StartMS = %d, want %d (INDEX 00 pregap should be ignored)", sheet.Tracks[0].StartMS, wantMS)
	}
}

func TestParseCueTimestampConvertsFrames(t *testing.T) {
	ms, err := parseCueTimestamp("00:00:75") // 75 frames = 1 second at 75fps
	if err != nil {
		t.Fatalf("parseCueTimestamp: %v", err)
	}
	if ms != 1000 {
		t.Fatalf("ms = %d, want 1000", ms)
	}
}
