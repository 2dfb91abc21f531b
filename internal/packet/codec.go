package packet

import "encoding/binary"

// Encode returns the manufacturer-specific AD structure (length, type,
// data) for env. Text is clamped to MaxTextLen bytes and non-ASCII bytes
// are replaced with '?'. The result is at most MaxAdvertisingDataLen bytes.
func Encode(env Envelope) []byte {
	return ManufacturerStructure(CompanyID, ManufacturerData(env))
}

// ManufacturerData returns the manufacturer data for env that follows the
// company identifier: magic, device id, kind and payload.
func ManufacturerData(env Envelope) []byte {
	data := make([]byte, 0, MaxTextLen+MinDataSize-CompanyIDSize)
	data = append(data, Magic[:]...)
	data = append(data, env.DeviceID, byte(env.Kind))

	switch env.Kind {
	case KindIndex:
		data = append(data, env.Index)
	case KindText:
		text := clampASCII(env.Text)
		data = append(data, byte(len(text)))
		data = append(data, text...)
	default:
		data = append(data, 0)
	}
	return data
}

// ManufacturerStructure wraps data in a manufacturer-specific AD structure
// with the given company identifier. Drivers that only report parsed
// manufacturer elements use it to rebuild raw advertising bytes for Decode.
func ManufacturerStructure(companyID uint16, data []byte) []byte {
	buf := make([]byte, 2+CompanyIDSize+len(data))
	buf[0] = byte(1 + CompanyIDSize + len(data))
	buf[1] = ADTypeManufacturerData
	binary.LittleEndian.PutUint16(buf[2:4], companyID)
	copy(buf[4:], data)
	return buf
}

func clampASCII(s string) []byte {
	if len(s) > MaxTextLen {
		s = s[:MaxTextLen]
	}
	b := []byte(s)
	for i, c := range b {
		if c > 0x7F {
			b[i] = '?'
		}
	}
	return b
}

// Decode scans raw advertising data for this protocol's manufacturer
// structure and returns the envelope it carries. It returns false for
// anything it does not recognize, including truncated or inconsistent
// structures; lengths read from the air are never trusted beyond len(adv).
func Decode(adv []byte) (Envelope, bool) {
	i := 0
	n := len(adv)

	for i < n {
		ln := int(adv[i])
		if ln == 0 || i+1+ln > n {
			break
		}
		end := i + 1 + ln

		if adv[i+1] == ADTypeManufacturerData {
			if env, ok := decodeManufacturer(adv[i+2 : end]); ok {
				return env, true
			}
		}
		i = end
	}
	return Envelope{}, false
}

// decodeManufacturer parses manufacturer data that starts at the company id.
func decodeManufacturer(data []byte) (Envelope, bool) {
	if len(data) < MinDataSize {
		return Envelope{}, false
	}
	if binary.LittleEndian.Uint16(data[0:2]) != CompanyID {
		return Envelope{}, false
	}
	if [MagicSize]byte(data[2:6]) != Magic {
		return Envelope{}, false
	}

	env := Envelope{
		DeviceID: data[6],
		Kind:     Kind(data[7]),
	}
	third := data[8]

	switch env.Kind {
	case KindPresence:
		return env, true
	case KindIndex:
		env.Index = third
		return env, true
	case KindText:
		textLen := int(third)
		if textLen > MaxTextLen || HeaderSize+1+textLen > len(data) {
			return Envelope{}, false
		}
		text := data[HeaderSize+1 : HeaderSize+1+textLen]
		for _, c := range text {
			if c > 0x7F {
				return Envelope{}, false
			}
		}
		env.Text = string(text)
		return env, true
	default:
		return Envelope{}, false
	}
}
