package boards

func serialPort(address string) Port {
	return Port{
		Address:       address,
		AddressLabel:  address,
		Protocol:      ProtocolSerial,
		ProtocolLabel: "Serial Port (USB)",
	}
}

func networkPort(address, name string) Port {
	return Port{
		Address:       address,
		AddressLabel:  name + " at " + address,
		Protocol:      ProtocolNetwork,
		ProtocolLabel: "Network Port",
		Properties:    map[string]string{"hostname": name},
	}
}

func usbPort(address string) Port {
	return Port{
		Address:       address,
		AddressLabel:  address,
		Protocol:      "usb",
		ProtocolLabel: "USB",
	}
}

var (
	uno      = BoardIdentifier{Name: "Arduino Uno", FQBN: "arduino:avr:uno"}
	mkr1000  = BoardIdentifier{Name: "Arduino MKR1000", FQBN: "arduino:samd:mkr1000"}
	nanoEsp  = BoardIdentifier{Name: "Arduino Nano ESP32", FQBN: "arduino:esp32:nano_nora"}
	esp32    = BoardIdentifier{Name: "ESP32 Dev Module", FQBN: "esp32:esp32:esp32"}
	aaaBoard = BoardIdentifier{Name: "AAA Board", FQBN: "acme:avr:aaa"}
	// not installed, known by name only
	unoR4 = BoardIdentifier{Name: "Arduino UNO R4 WiFi"}

	builtinSerial         = serialPort("/dev/cu.BLTH")
	bluetoothSerial       = serialPort("/dev/cu.Bluetooth-Incoming-Port")
	unoSerial             = serialPort("/dev/cu.usbmodem14201")
	mkr1000Serial         = serialPort("/dev/cu.usbmodem14101")
	undiscoveredSerial    = serialPort("/dev/cu.usbserial-0001")
	undiscoveredUsbToUart = serialPort("/dev/cu.SLAB_USBtoUART")
	mkr1000Network        = networkPort("192.168.0.104", "mkr1000")
	nanoEspSerial         = serialPort("/dev/cu.usbmodem3101")
	esp32Serial           = serialPort("/dev/cu.usbserial-1410")
	picoUSB               = usbPort("1-2.3")
	unknownUSB            = usbPort("1-4")
)

func detected(port Port, boards ...BoardIdentifier) DetectedPort {
	return DetectedPort{Port: port, Boards: boards}
}

// defaultDetectedPorts is a desk with a few boards plugged in, one of them
// also reachable over the network, and some serial ports nothing was found on.
func defaultDetectedPorts() DetectedPorts {
	return NewDetectedPorts(
		detected(builtinSerial),
		detected(bluetoothSerial),
		detected(unoSerial, uno),
		detected(mkr1000Serial, mkr1000),
		detected(mkr1000Network, mkr1000),
		detected(undiscoveredSerial),
		detected(undiscoveredUsbToUart),
	)
}

func selection(board BoardIdentifier, port Port) BoardsConfig {
	id := port.Identifier()
	return BoardsConfig{SelectedBoard: &board, SelectedPort: &id}
}
