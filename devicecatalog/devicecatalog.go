// Package devicecatalog reads the on-disk JSON contract the out-of-scope
// discovery module is expected to produce (SPEC_FULL.md §3's
// DeviceCatalogEntry): a flat array of device descriptors. It never
// writes the file and never enumerates devices itself.
package devicecatalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
)

// Entry is the on-disk shape of one device, matching DeviceDescriptor's
// wire shape exactly.
type Entry struct {
	DeviceID string                     `json:"device_id"`
	Name     string                     `json:"name"`
	Kind     capturemodel.DeviceKind    `json:"kind"`
	Camera   capturemodel.CameraParams  `json:"camera,omitempty"`
	Audio    capturemodel.AudioParams   `json:"audio,omitempty"`
}

// descriptor converts Entry to a DeviceDescriptor, assigning a fresh
// device_id when the catalog file omits one rather than rejecting the
// entry outright.
func (e Entry) descriptor() capturemodel.DeviceDescriptor {
	id := e.DeviceID
	if id == "" {
		id = uuid.NewString()
	}
	return capturemodel.DeviceDescriptor{
		DeviceID: id,
		Name:     e.Name,
		Kind:     e.Kind,
		Camera:   e.Camera,
		Audio:    e.Audio,
	}
}

// Load reads path, an array of Entry objects, and returns the validated
// device set. Duplicate names are rejected per
// capturemodel.ValidateDeviceSet.
func Load(path string) ([]capturemodel.DeviceDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devicecatalog: read %s: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("devicecatalog: parse %s: %w", path, err)
	}

	devices := make([]capturemodel.DeviceDescriptor, 0, len(entries))
	for _, e := range entries {
		devices = append(devices, e.descriptor())
	}
	if err := capturemodel.ValidateDeviceSet(devices); err != nil {
		return nil, fmt.Errorf("devicecatalog: %s: %w", path, err)
	}
	return devices, nil
}
