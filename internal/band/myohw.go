package band

// myohw GATT vocabulary: the control service carries commands, the IMU and
// EMG services stream notifications. The 128-bit UUIDs derive from the
// vendor base d506xxxx-a904-deb9-4748-2c7f4a124842.
const (
	ControlServiceUUID = "d5060001-a904-deb9-4748-2c7f4a124842"
	CommandCharUUID    = "d5060401-a904-deb9-4748-2c7f4a124842"

	IMUServiceUUID  = "d5060002-a904-deb9-4748-2c7f4a124842"
	IMUDataCharUUID = "d5060402-a904-deb9-4748-2c7f4a124842"

	EMGServiceUUID = "d5060005-a904-deb9-4748-2c7f4a124842"
)

// EMGDataCharUUIDs lists the four EMG notification characteristics; the
// band round-robins sample pairs across them.
var EMGDataCharUUIDs = [4]string{
	"d5060105-a904-deb9-4748-2c7f4a124842",
	"d5060205-a904-deb9-4748-2c7f4a124842",
	"d5060305-a904-deb9-4748-2c7f4a124842",
	"d5060405-a904-deb9-4748-2c7f4a124842",
}

// EMGMode selects what the EMG pipeline streams.
type EMGMode byte

const (
	EMGModeNone     EMGMode = 0x00
	EMGModeFiltered EMGMode = 0x02
	EMGModeRaw      EMGMode = 0x03
)

// IMUMode selects what the IMU pipeline streams.
type IMUMode byte

const (
	IMUModeNone   IMUMode = 0x00
	IMUModeData   IMUMode = 0x01
	IMUModeEvents IMUMode = 0x02
	IMUModeAll    IMUMode = 0x03
	IMUModeRaw    IMUMode = 0x04
)

// ClassifierMode switches the band's on-board pose classifier.
type ClassifierMode byte

const (
	ClassifierDisabled ClassifierMode = 0x00
	ClassifierEnabled  ClassifierMode = 0x01
)

// SleepMode switches the band's idle sleep.
type SleepMode byte

const (
	SleepNormal SleepMode = 0x00
	SleepNever  SleepMode = 0x01
)

// Command opcodes.
const (
	cmdSetMode      = 0x01
	cmdVibrate      = 0x03
	cmdSetSleepMode = 0x09
)

// SetModeCommand builds the myohw set_mode command payload.
func SetModeCommand(emg EMGMode, imu IMUMode, classifier ClassifierMode) []byte {
	return []byte{cmdSetMode, 3, byte(emg), byte(imu), byte(classifier)}
}

// VibrateCommand builds the myohw vibrate command payload.
func VibrateCommand(v Vibration) []byte {
	return []byte{cmdVibrate, 1, byte(v)}
}

// SleepCommand builds the myohw set_sleep_mode command payload.
func SleepCommand(mode SleepMode) []byte {
	return []byte{cmdSetSleepMode, 1, byte(mode)}
}

// StreamingCommand is the set_mode the engine needs: filtered EMG, IMU
// orientation data, on-board classifier off.
func StreamingCommand() []byte {
	return SetModeCommand(EMGModeFiltered, IMUModeData, ClassifierDisabled)
}
