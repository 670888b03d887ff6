package sink

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/magda-accompanist/internal/models"
)

func testArrangement() models.Arrangement {
	return models.Arrangement{
		Genre:    "pop",
		Tempo:    100,
		Programs: map[string]int{"piano": 4, "bass": 33},
		Tracks: []models.Track{
			{
				Name: "verse_piano", Section: "verse", Role: "piano",
				Notes: []models.NoteEvent{
					{MidiNoteNumber: 60, Velocity: 92, StartBeats: 0, EndBeats: 1},
					{MidiNoteNumber: 64, Velocity: 92, StartBeats: 0, EndBeats: 1},
					{MidiNoteNumber: 60, Velocity: 90, StartBeats: 1, EndBeats: 2},
				},
			},
			{
				Name: "verse_bass", Section: "verse", Role: "bass",
				Notes: []models.NoteEvent{
					{MidiNoteNumber: 36, Velocity: 84, StartBeats: 0.0001, EndBeats: 0.0002},
				},
			},
			{
				Name: "verse_drums", Section: "verse", Role: "drums", Percussion: true,
				Notes: []models.NoteEvent{
					{MidiNoteNumber: 36, Velocity: 90, StartBeats: 0, EndBeats: 0.1},
					{MidiNoteNumber: 38, Velocity: 90, StartBeats: 1, EndBeats: 1.1},
				},
			},
		},
	}
}

func TestMIDIEncoderRoundTrip(t *testing.T) {
	arr := testArrangement()

	var buf bytes.Buffer
	require.NoError(t, NewMIDIEncoder().Encode(&buf, arr))

	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, s.Tracks, len(arr.Tracks)+1)

	var bpm float64
	for _, ev := range s.Tracks[0] {
		ev.Message.GetMetaTempo(&bpm)
	}
	assert.InDelta(t, 100, bpm, 0.01)

	for i, tr := range arr.Tracks {
		var name string
		var starts int
		var channel, key, vel, program uint8
		programSeen := false
		for _, ev := range s.Tracks[i+1] {
			if ev.Message.GetMetaTrackName(&name) {
				continue
			}
			msg := midi.Message(ev.Message)
			if msg.GetNoteStart(&channel, &key, &vel) {
				starts++
				if tr.Percussion {
					assert.Equal(t, uint8(drumChannel), channel)
				}
			}
			if msg.GetProgramChange(&channel, &program) {
				programSeen = true
				assert.Equal(t, uint8(arr.Programs[tr.Role]), program)
			}
		}
		assert.Equal(t, tr.Name, name)
		assert.Equal(t, len(tr.Notes), starts, tr.Name)
		assert.Equal(t, !tr.Percussion, programSeen, tr.Name)
	}
}

func TestMIDIEncoderTickPlacement(t *testing.T) {
	arr := testArrangement()
	arr.Tracks = arr.Tracks[:1]

	var buf bytes.Buffer
	require.NoError(t, (&MIDIEncoder{PPQ: 480}).Encode(&buf, arr))

	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	var abs uint32
	var starts []uint32
	var channel, key, vel uint8
	for _, ev := range s.Tracks[1] {
		abs += ev.Delta
		if midi.Message(ev.Message).GetNoteStart(&channel, &key, &vel) {
			starts = append(starts, abs)
		}
	}
	assert.Equal(t, []uint32{0, 0, 480}, starts)
}

// noteSpans pairs every note-on with the next note-off of its key and
// returns the sounding lengths in ticks, in note-on order
func noteSpans(t *testing.T, tr smf.Track) []uint32 {
	t.Helper()

	var abs uint32
	var spans []uint32
	open := map[uint8]int{}
	var starts []uint32
	var channel, key, vel uint8
	for _, ev := range tr {
		abs += ev.Delta
		msg := midi.Message(ev.Message)
		switch {
		case msg.GetNoteStart(&channel, &key, &vel):
			_, sounding := open[key]
			require.False(t, sounding, "key %d struck while still sounding", key)
			open[key] = len(starts)
			starts = append(starts, abs)
			spans = append(spans, 0)
		case msg.GetNoteEnd(&channel, &key):
			i, sounding := open[key]
			require.True(t, sounding, "key %d released while silent", key)
			spans[i] = abs - starts[i]
			delete(open, key)
		}
	}
	assert.Empty(t, open, "notes left sounding")
	return spans
}

func TestMIDIEncoderRepeatedPitch(t *testing.T) {
	tests := []struct {
		name     string
		notes    []models.NoteEvent
		expected []uint32
	}{
		{
			name: "overlap is released at the next strike",
			notes: []models.NoteEvent{
				{MidiNoteNumber: 60, Velocity: 84, StartBeats: 0, EndBeats: 1.004},
				{MidiNoteNumber: 60, Velocity: 84, StartBeats: 0.996, EndBeats: 2},
			},
			expected: []uint32{956, 964},
		},
		{
			name: "back to back",
			notes: []models.NoteEvent{
				{MidiNoteNumber: 60, Velocity: 84, StartBeats: 0, EndBeats: 1},
				{MidiNoteNumber: 60, Velocity: 84, StartBeats: 1, EndBeats: 2},
			},
			expected: []uint32{960, 960},
		},
		{
			name: "same tick strikes merge",
			notes: []models.NoteEvent{
				{MidiNoteNumber: 60, Velocity: 70, StartBeats: 0, EndBeats: 0.5},
				{MidiNoteNumber: 60, Velocity: 90, StartBeats: 0, EndBeats: 1},
			},
			expected: []uint32{960},
		},
		{
			name: "other keys are untouched",
			notes: []models.NoteEvent{
				{MidiNoteNumber: 60, Velocity: 84, StartBeats: 0, EndBeats: 2},
				{MidiNoteNumber: 64, Velocity: 84, StartBeats: 1, EndBeats: 2},
			},
			expected: []uint32{1920, 960},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := models.Arrangement{
				Genre:    "pop",
				Tempo:    100,
				Programs: map[string]int{"bass": 33},
				Tracks:   []models.Track{{Name: "verse_bass", Section: "verse", Role: "bass", Notes: tt.notes}},
			}

			var buf bytes.Buffer
			require.NoError(t, NewMIDIEncoder().Encode(&buf, arr))
			s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)

			spans := noteSpans(t, s.Tracks[1])
			assert.Equal(t, tt.expected, spans)
			for _, span := range spans {
				assert.Greater(t, float64(span)/DefaultPPQ, 0.9)
			}
		})
	}
}

func TestMIDIEncoderArpBorrowsPianoProgram(t *testing.T) {
	arr := models.Arrangement{
		Genre:    "pop",
		Programs: map[string]int{"piano": 4},
		Tracks: []models.Track{{
			Name: "verse_arp", Section: "verse", Role: "arp",
			Notes: []models.NoteEvent{{MidiNoteNumber: 60, Velocity: 96, StartBeats: 0, EndBeats: 0.5}},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, NewMIDIEncoder().Encode(&buf, arr))
	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	var channel, program uint8
	found := false
	for _, ev := range s.Tracks[1] {
		if midi.Message(ev.Message).GetProgramChange(&channel, &program) {
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, uint8(3), channel)
	assert.Equal(t, uint8(4), program)
}

func TestMIDIEncoderRejectsInvalidNotes(t *testing.T) {
	arr := testArrangement()
	arr.Tracks[0].Notes[0].Velocity = 0

	var buf bytes.Buffer
	err := NewMIDIEncoder().Encode(&buf, arr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verse_piano")
}

func TestJSONEncoder(t *testing.T) {
	arr := testArrangement()

	var buf bytes.Buffer
	require.NoError(t, (&JSONEncoder{}).Encode(&buf, arr))

	var decoded models.Arrangement
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, arr.Genre, decoded.Genre)
	assert.Equal(t, arr.NoteCount(), decoded.NoteCount())
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format  string
		ext     string
		wantErr bool
	}{
		{format: "", ext: ".mid"},
		{format: "midi", ext: ".mid"},
		{format: ".MID", ext: ".mid"},
		{format: "json", ext: ".json"},
		{format: "wav", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			enc, err := ForFormat(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ext, enc.Extension())
		})
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFile(filepath.Join(dir, "songs", "pop", "C_pop"), NewMIDIEncoder(), testArrangement())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "songs", "pop", "C_pop.mid"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
