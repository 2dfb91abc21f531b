package packet

// Advertisement layout constants. All higher layers should depend on these.
const (
	// MaxAdvertisingDataLen is the legacy advertising data budget.
	MaxAdvertisingDataLen = 31

	// AD structure types
	ADTypeFlags             = 0x01
	ADTypeCompleteLocalName = 0x09
	ADTypeManufacturerData  = 0xFF

	// FlagsGeneralNoBREDR is LE General Discoverable | BR/EDR Not Supported.
	FlagsGeneralNoBREDR = 0x06

	// CompanyID is the private-use manufacturer identifier, sent little-endian.
	CompanyID uint16 = 0xFFFF

	// Field sizes inside the manufacturer data
	CompanyIDSize = 2
	MagicSize     = 4
	DeviceIDSize  = 1
	KindSize      = 1

	// HeaderSize is companyId + magic + deviceId + kind.
	HeaderSize = CompanyIDSize + MagicSize + DeviceIDSize + KindSize

	// MinDataSize is the smallest manufacturer data that can carry an event:
	// the header plus one payload byte (reserved, index, or text length).
	MinDataSize = HeaderSize + 1

	// MaxTextLen is the longest text payload the envelope can describe.
	MaxTextLen = 20

	// FlagsSize is the Flags structure Pack always emits.
	FlagsSize = 3

	// MaxDeliverableTextLen is the longest text whose manufacturer
	// structure fits next to the Flags. Pack cuts anything longer and
	// receivers drop it.
	MaxDeliverableTextLen = MaxAdvertisingDataLen - FlagsSize - (2 + MinDataSize)
)

// Magic tags manufacturer data belonging to this protocol.
var Magic = [MagicSize]byte{'G', 'B', 'S', 'G'}
