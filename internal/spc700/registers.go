package spc700

import "github.com/exotracker/audio/internal/regwrite"

// S-DSP global register addresses, named after the SPC_DSP enum they
// were retrieved from in the original engine.
const (
	rMVOLL regwrite.Address = 0x0C // master volume left
	rMVOLR regwrite.Address = 0x1C // master volume right
	rEVOLL regwrite.Address = 0x2C // echo volume left
	rEVOLR regwrite.Address = 0x3C // echo volume right
	rKON   regwrite.Address = 0x4C // key-on bitmask
	rKOFF  regwrite.Address = 0x5C // key-off bitmask
	rFLG   regwrite.Address = 0x6C // flags: reset / mute / echo-write disable / noise freq
	rPMON  regwrite.Address = 0x2D // pitch modulation enable bitmask
	rNON   regwrite.Address = 0x3D // noise enable bitmask
	rEON   regwrite.Address = 0x4D // echo enable bitmask
	rDIR   regwrite.Address = 0x5D // sample directory page
)

// Per-voice register offsets, added to a channel's base address via
// calcVoiceReg.
const (
	vSRCN   regwrite.Address = 0x04 // sample source number
	vADSR0  regwrite.Address = 0x05
	vADSR1  regwrite.Address = 0x06
	vPITCHL regwrite.Address = 0x02
	vVOLL   regwrite.Address = 0x00
	vVOLR   regwrite.Address = 0x01
)

// calcVoiceReg computes the address of a per-voice register given the
// channel number, matching spc700_driver.cpp's calc_voice_reg.
func calcVoiceReg(channelID int, vReg regwrite.Address) regwrite.Address {
	if vReg > 0x09 {
		panic("spc700: voice register offset out of range")
	}
	return regwrite.Address(channelID<<4) + vReg
}
