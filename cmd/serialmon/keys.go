package main

const (
	keyCtrlT        = 0x14 // menu
	keyCtrlRBracket = 0x1d // exit
	keyCtrlL        = 0x0c
	keyCtrlI        = 0x09
	keyCtrlY        = 0x19
	keyCtrlH        = 0x08
)

type keyAction int

const (
	// actionSend forwards the key to the device.
	actionSend keyAction = iota
	actionNone
	actionExit
	actionToggleLogging
	actionToggleTimestamps
	actionToggleOutput
	actionHelp
)

// keyMenu recognizes the monitor's key bindings in the stream of bytes typed
// on the console. Commands are the menu key followed by a command key.
type keyMenu struct {
	armed bool
}

func (m *keyMenu) feed(b byte) keyAction {
	if !m.armed {
		switch b {
		case keyCtrlT:
			m.armed = true
			return actionNone
		case keyCtrlRBracket:
			return actionExit
		}
		return actionSend
	}

	m.armed = false
	switch b {
	case keyCtrlT, keyCtrlRBracket:
		// menu key twice sends the key itself
		return actionSend
	case keyCtrlL, 'l', 'L':
		return actionToggleLogging
	case keyCtrlI, 'i', 'I':
		return actionToggleTimestamps
	case keyCtrlY, 'y', 'Y':
		return actionToggleOutput
	case keyCtrlH, 'h', 'H', '?':
		return actionHelp
	case 'x', 'X':
		return actionExit
	}
	return actionNone
}

const helpText = `--- serialmon keys:
---    Ctrl+]          Exit program
---    Ctrl+T Ctrl+L   Toggle logging to file
---    Ctrl+T Ctrl+I   Toggle timestamps
---    Ctrl+T Ctrl+Y   Toggle output display
---    Ctrl+T Ctrl+T   Send Ctrl+T to the device
---    Ctrl+T Ctrl+]   Send Ctrl+] to the device
---    Ctrl+T Ctrl+H   Show this help
`
