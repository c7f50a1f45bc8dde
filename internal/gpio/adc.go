package gpio

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// IIOChannel reads an ADC channel exposed by the Linux Industrial I/O
// subsystem (e.g. an MCP3008 or ADS1015 overlay).
type IIOChannel struct {
	path string
}

// NewIIOChannel returns the in_voltage<channel>_raw attribute of iio:device<device>.
func NewIIOChannel(device, channel int) *IIOChannel {
	return NewIIOChannelAt(fmt.Sprintf("/sys/bus/iio/devices/iio:device%d/in_voltage%d_raw", device, channel))
}

// NewIIOChannelAt reads raw counts from an arbitrary sysfs attribute path.
func NewIIOChannelAt(path string) *IIOChannel {
	return &IIOChannel{path: path}
}

// ReadRaw returns the current ADC count.
func (c *IIOChannel) ReadRaw() (int, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return 0, fmt.Errorf("read adc: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse adc value %q: %w", strings.TrimSpace(string(raw)), err)
	}
	return v, nil
}
