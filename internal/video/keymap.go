package video

import "github.com/hajimehoshi/ebiten/v2"

// keymap translates host keys to the scancode numbering the keyboard FIFO
// exposes to the guest. Keys absent from the table are ignored.
var keymap = map[ebiten.Key]uint32{
	ebiten.KeyEscape:       1,
	ebiten.KeyF1:           2,
	ebiten.KeyF2:           3,
	ebiten.KeyF3:           4,
	ebiten.KeyF4:           5,
	ebiten.KeyF5:           6,
	ebiten.KeyF6:           7,
	ebiten.KeyF7:           8,
	ebiten.KeyF8:           9,
	ebiten.KeyF9:           10,
	ebiten.KeyF10:          11,
	ebiten.KeyF11:          12,
	ebiten.KeyF12:          13,
	ebiten.KeyBackquote:    14,
	ebiten.KeyDigit1:       15,
	ebiten.KeyDigit2:       16,
	ebiten.KeyDigit3:       17,
	ebiten.KeyDigit4:       18,
	ebiten.KeyDigit5:       19,
	ebiten.KeyDigit6:       20,
	ebiten.KeyDigit7:       21,
	ebiten.KeyDigit8:       22,
	ebiten.KeyDigit9:       23,
	ebiten.KeyDigit0:       24,
	ebiten.KeyMinus:        25,
	ebiten.KeyEqual:        26,
	ebiten.KeyBackspace:    27,
	ebiten.KeyTab:          28,
	ebiten.KeyQ:            29,
	ebiten.KeyW:            30,
	ebiten.KeyE:            31,
	ebiten.KeyR:            32,
	ebiten.KeyT:            33,
	ebiten.KeyY:            34,
	ebiten.KeyU:            35,
	ebiten.KeyI:            36,
	ebiten.KeyO:            37,
	ebiten.KeyP:            38,
	ebiten.KeyBracketLeft:  39,
	ebiten.KeyBracketRight: 40,
	ebiten.KeyBackslash:    41,
	ebiten.KeyCapsLock:     42,
	ebiten.KeyA:            43,
	ebiten.KeyS:            44,
	ebiten.KeyD:            45,
	ebiten.KeyF:            46,
	ebiten.KeyG:            47,
	ebiten.KeyH:            48,
	ebiten.KeyJ:            49,
	ebiten.KeyK:            50,
	ebiten.KeyL:            51,
	ebiten.KeySemicolon:    52,
	ebiten.KeyQuote:        53,
	ebiten.KeyEnter:        54,
	ebiten.KeyShiftLeft:    55,
	ebiten.KeyZ:            56,
	ebiten.KeyX:            57,
	ebiten.KeyC:            58,
	ebiten.KeyV:            59,
	ebiten.KeyB:            60,
	ebiten.KeyN:            61,
	ebiten.KeyM:            62,
	ebiten.KeyComma:        63,
	ebiten.KeyPeriod:       64,
	ebiten.KeySlash:        65,
	ebiten.KeyShiftRight:   66,
	ebiten.KeyControlLeft:  67,
	ebiten.KeyContextMenu:  68,
	ebiten.KeyAltLeft:      69,
	ebiten.KeySpace:        70,
	ebiten.KeyAltRight:     71,
	ebiten.KeyControlRight: 72,
	ebiten.KeyArrowUp:      73,
	ebiten.KeyArrowDown:    74,
	ebiten.KeyArrowLeft:    75,
	ebiten.KeyArrowRight:   76,
	ebiten.KeyInsert:       77,
	ebiten.KeyDelete:       78,
	ebiten.KeyHome:         79,
	ebiten.KeyEnd:          80,
	ebiten.KeyPageUp:       81,
	ebiten.KeyPageDown:     82,
}
