package device

import (
	"fmt"
	"testing"
)

// setupBenchRegistry creates a registry pre-populated with n devices spread
// over n/4 four-channel components.
func setupBenchRegistry(b *testing.B, n int) *Registry {
	b.Helper()
	reg := NewRegistry()
	for c := 1; c <= n/4+1; c++ {
		reg.AddComponent(NewComponent(ComponentRecord{ID: c, CompType: CompTypePushButtonMulti4}))
	}
	for i := 1; i <= n; i++ {
		devType := DevTypeActuatorDimm
		if i%3 == 0 {
			devType = DevTypePushButton
		}
		newTestDevice(reg, DeviceRecord{
			ID:      i,
			Name:    fmt.Sprintf("Device %d", i),
			DevType: devType,
			CompID:  i/4 + 1,
		}, nil)
	}
	return reg
}

func BenchmarkRegistryDevice(b *testing.B) {
	reg := setupBenchRegistry(b, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.Device(50)
	}
}

func BenchmarkRegistryDevice_Parallel(b *testing.B) {
	reg := setupBenchRegistry(b, 100)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			reg.Device(50)
		}
	})
}

func BenchmarkRegistryDevicesInComponent(b *testing.B) {
	reg := setupBenchRegistry(b, 200)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.DevicesInComponent(10)
	}
}

func BenchmarkLightHandleState(b *testing.B) {
	reg := setupBenchRegistry(b, 10)
	d, _ := reg.Device(1)
	payloads := []Payload{
		{"switch": true, "dimmvalue": 40.0},
		{"power": 12.5},
		{"switch": false},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.HandleState(payloads[i%len(payloads)])
	}
}
