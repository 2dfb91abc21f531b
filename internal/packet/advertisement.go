package packet

// Pack assembles the full advertising data: the Flags structure, the
// device name if it fits, and the manufacturer structure mfg.
//
// Priority when over budget: Flags are always kept, the name is dropped
// next, and as a last resort the result is cut at MaxAdvertisingDataLen.
// A cut manufacturer structure no longer decodes; receivers drop it.
func Pack(name string, mfg []byte) []byte {
	flags := []byte{FlagsSize - 1, ADTypeFlags, FlagsGeneralNoBREDR}
	remain := MaxAdvertisingDataLen - len(flags)

	var nameAD []byte
	if name != "" {
		nameAD = make([]byte, 0, 2+len(name))
		nameAD = append(nameAD, byte(1+len(name)), ADTypeCompleteLocalName)
		nameAD = append(nameAD, name...)
	}

	out := make([]byte, 0, MaxAdvertisingDataLen+len(mfg))
	out = append(out, flags...)

	if len(nameAD)+len(mfg) <= remain {
		out = append(out, nameAD...)
		return append(out, mfg...)
	}
	if len(mfg) <= remain {
		return append(out, mfg...)
	}
	out = append(out, mfg...)
	return out[:MaxAdvertisingDataLen]
}

// LocalName returns the complete local name structure in adv, if any.
func LocalName(adv []byte) (string, bool) {
	i := 0
	for i < len(adv) {
		ln := int(adv[i])
		if ln == 0 || i+1+ln > len(adv) {
			break
		}
		if adv[i+1] == ADTypeCompleteLocalName {
			return string(adv[i+2 : i+1+ln]), true
		}
		i += 1 + ln
	}
	return "", false
}
