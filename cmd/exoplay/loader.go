package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/exotracker/audio/internal/doc"
)

// The JSON document format is a demo-only convenience: real
// persistence lives outside the core. It covers chips, samples,
// instruments, timeline events and tempo options, with base64 BRR
// blobs courtesy of encoding/json's []byte handling; channel settings,
// effects and pattern loop lengths are not loaded, and the frequency
// table is always 440 Hz equal temperament.

type jsonSample struct {
	BRR         []byte  `json:"brr"`
	LoopByte    uint32  `json:"loop_byte"`
	SampleRate  float64 `json:"sample_rate"`
	RootKey     int     `json:"root_key"`
	DetuneCents float64 `json:"detune_cents"`
}

type jsonPatch struct {
	MinNote          int    `json:"min_note"`
	MaxNoteInclusive int    `json:"max_note"`
	Sample           int    `json:"sample"`
	Adsr             [4]int `json:"adsr"` // attack, decay, sustain_level, decay2
}

type jsonInstrument struct {
	Keysplit []jsonPatch `json:"keysplit"`
}

type jsonEvent struct {
	AnchorBeat float64 `json:"beat"`
	TickOffset int32   `json:"tick_offset,omitempty"`
	Note       *int    `json:"note,omitempty"`
	Instrument *int    `json:"instrument,omitempty"`
	Volume     *int    `json:"volume,omitempty"`
}

type jsonBlock struct {
	BeginBeat float64     `json:"begin_beat"`
	EndBeat   float64     `json:"end_beat"`
	Events    []jsonEvent `json:"events"`
}

type jsonFrame struct {
	NBeats float64         `json:"nbeats"`
	Cells  [][][]jsonBlock `json:"cells"` // [chip][channel][block]
}

type jsonDocument struct {
	Chips          []string                  `json:"chips"` // "spc700" | "nes2a03"
	Samples        map[string]jsonSample     `json:"samples"`
	Instruments    map[string]jsonInstrument `json:"instruments"`
	Timeline       []jsonFrame               `json:"timeline"`
	TargetTempo    float64                   `json:"target_tempo"`
	SpcTimerPeriod uint32                    `json:"spc_timer_period"`
	TicksPerBeat   float64                   `json:"ticks_per_beat"`
}

func loadDocument(path string) (*doc.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	var jd jsonDocument
	if err := json.Unmarshal(data, &jd); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	d := &doc.Document{
		SequencerOpts: doc.SequencerOptions{
			TargetTempo:    jd.TargetTempo,
			SpcTimerPeriod: jd.SpcTimerPeriod,
			TicksPerBeat:   jd.TicksPerBeat,
		},
		FrequencyTable: doc.EqualTemperament(440),
	}
	if d.SequencerOpts.SpcTimerPeriod == 0 {
		d.SequencerOpts.SpcTimerPeriod = 64
	}
	if d.SequencerOpts.TicksPerBeat == 0 {
		d.SequencerOpts.TicksPerBeat = 48
	}
	if d.SequencerOpts.TargetTempo == 0 {
		d.SequencerOpts.TargetTempo = 120
	}

	for _, name := range jd.Chips {
		switch name {
		case "spc700":
			d.Chips = append(d.Chips, doc.Spc700)
		case "nes2a03":
			d.Chips = append(d.Chips, doc.Nes2A03)
		default:
			return nil, fmt.Errorf("unknown chip kind %q", name)
		}
	}
	if len(d.Chips) == 0 {
		return nil, fmt.Errorf("document has no chips")
	}

	for key, js := range jd.Samples {
		idx, err := parseSlot(key, doc.MaxSamples)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", key, err)
		}
		d.Samples[idx] = &doc.Sample{
			BRR:         js.BRR,
			LoopByte:    js.LoopByte,
			SampleRate:  js.SampleRate,
			RootKey:     js.RootKey,
			DetuneCents: js.DetuneCents,
		}
	}

	for key, ji := range jd.Instruments {
		idx, err := parseSlot(key, doc.MaxInstruments)
		if err != nil {
			return nil, fmt.Errorf("instrument %q: %w", key, err)
		}
		instr := &doc.Instrument{}
		for _, jp := range ji.Keysplit {
			instr.Keysplit = append(instr.Keysplit, doc.InstrumentPatch{
				MinNote:          jp.MinNote,
				MaxNoteInclusive: jp.MaxNoteInclusive,
				Sample:           jp.Sample,
				Adsr: doc.Adsr{
					Attack:     uint8(jp.Adsr[0]),
					Decay:      uint8(jp.Adsr[1]),
					SustainLvl: uint8(jp.Adsr[2]),
					Decay2:     uint8(jp.Adsr[3]),
				},
			})
		}
		d.Instruments[idx] = instr
	}

	for fi, jf := range jd.Timeline {
		frame := doc.TimelineFrame{NBeats: jf.NBeats}
		for chip := range d.Chips {
			nchan := d.Chips[chip].NumChannels()
			channels := make([]doc.Cell, nchan)
			if chip < len(jf.Cells) {
				for ch := 0; ch < nchan && ch < len(jf.Cells[chip]); ch++ {
					for _, jb := range jf.Cells[chip][ch] {
						block := doc.Block{BeginBeat: jb.BeginBeat, EndBeat: jb.EndBeat}
						for _, je := range jb.Events {
							block.Pattern.Events = append(block.Pattern.Events, doc.RowEvent{
								AnchorBeat: je.AnchorBeat,
								TickOffset: je.TickOffset,
								Note:       je.Note,
								Instrument: je.Instrument,
								Volume:     je.Volume,
							})
						}
						channels[ch].Blocks = append(channels[ch].Blocks, block)
					}
				}
			}
			frame.Channels = append(frame.Channels, channels)
		}
		if frame.NBeats <= 0 {
			return nil, fmt.Errorf("timeline frame %d: nbeats must be positive", fi)
		}
		d.Timeline = append(d.Timeline, frame)
	}
	if len(d.Timeline) == 0 {
		return nil, fmt.Errorf("document has no timeline frames")
	}

	return d, nil
}

func parseSlot(key string, max int) (int, error) {
	var idx int
	if _, err := fmt.Sscanf(key, "%d", &idx); err != nil {
		return 0, fmt.Errorf("slot key must be numeric: %w", err)
	}
	if idx < 0 || idx >= max {
		return 0, fmt.Errorf("slot %d out of range [0, %d)", idx, max)
	}
	return idx, nil
}
