package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweeney/solard/internal/logic"
)

func controllerSnapshot(t *testing.T) logic.Snapshot {
	t.Helper()
	c := logic.NewController(logic.DefaultSettings(), logic.PowerCounters{TotalWh: 120.5, NightlyWh: 100})
	now := time.Date(2026, 6, 15, 2, 0, 0, 0, time.UTC)
	c.Step(logic.Input{
		Now: now,
		Readings: [logic.NumChannels]logic.Reading{
			logic.Furnace:    {Temp: 30, OK: true},
			logic.Collector:  {Temp: 20, OK: true},
			logic.BoilerHigh: {Temp: 45, OK: true},
			logic.BoilerLow:  {Temp: 42, OK: true},
		},
	})
	return c.Snapshot()
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Version: "v1.2.0", Broker: "tcp://localhost:1883", HTTPPort: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	assert.True(t, snap.StartTime.Equal(start))
	assert.Equal(t, "v1.2.0", snap.Config.Version)
	assert.Equal(t, ":80", snap.Config.HTTPPort)
	assert.False(t, snap.Ready)
	assert.False(t, snap.MQTTConnected)
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	cs := controllerSnapshot(t)
	tr.Update(cs)

	snap := tr.Snapshot()
	assert.True(t, snap.Ready)
	assert.Equal(t, uint64(1), snap.Controller.Cycles)
	assert.Equal(t, 45.0, snap.Controller.Sensors[logic.BoilerHigh].Current)
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	assert.True(t, tr.Snapshot().MQTTConnected)

	tr.SetMQTTConnected(false)
	assert.False(t, tr.Snapshot().MQTTConnected)
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	assert.Nil(t, tr.Snapshot().Network)

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})

	got := tr.Snapshot().Network
	require.NotNil(t, got)
	assert.Equal(t, "192.168.1.42", got.IP)
}

func TestUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Minute)}
	assert.Equal(t, 90*time.Minute, snap.Uptime())
}

func TestSnapshotUsesClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(now.Add(-time.Hour), Config{})
	tr.now = func() time.Time { return now }

	assert.Equal(t, time.Hour, tr.Snapshot().Uptime())
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	cs := controllerSnapshot(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Update(cs)
				tr.SetMQTTConnected(j%2 == 0)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = tr.Snapshot()
			}
		}()
	}
	wg.Wait()
}

func testSnapshot(t *testing.T) Snapshot {
	start := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	return Snapshot{
		Controller:    controllerSnapshot(t),
		Ready:         true,
		StartTime:     start,
		Now:           start.Add(2*time.Hour + 500*time.Millisecond),
		MQTTConnected: true,
		Config: Config{
			Version:      "v1.2.0",
			Broker:       "tcp://localhost:1883",
			HTTPPort:     ":80",
			SettingsFile: "/etc/solard.yaml",
		},
	}
}

func TestFormatJSON(t *testing.T) {
	data := FormatJSON(testSnapshot(t))

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(data, &parsed))
	s := parsed.Status

	assert.Empty(t, s.Event)
	assert.True(t, s.Ready)
	assert.Equal(t, int64(7200), s.UptimeSeconds)
	assert.Equal(t, "2026-06-15T00:00:00Z", s.StartTime)
	assert.Equal(t, uint64(1), s.Cycles)
	assert.Equal(t, "auto", s.Mode.Setting)

	require.Contains(t, s.Sensors, "boiler_high")
	assert.Equal(t, 45.0, s.Sensors["boiler_high"].Temp)
	assert.Len(t, s.Actuators, int(logic.NumActuators))
	assert.Contains(t, s.Actuators, "heater")

	assert.True(t, s.Schedule.Night, "02:00 in June is inside the night window")
	assert.Equal(t, 23, s.Schedule.NightStart)
	assert.Equal(t, 6, s.Schedule.NightStop)
	assert.False(t, s.Schedule.Winter)

	assert.Equal(t, 40, s.Settings.WantedTemp)
	assert.True(t, s.MQTT.Connected)
	assert.Equal(t, "/etc/solard.yaml", s.Config.SettingsFile)
	assert.Nil(t, s.Network)
	assert.Greater(t, s.Power.TotalWh, 120.5)
	assert.InDelta(t, s.Power.TotalWh-s.Power.NightlyWh, s.Power.DailyWh, 0.002)
}

func TestFormatJSONIndented(t *testing.T) {
	data := FormatJSON(testSnapshot(t))
	assert.Contains(t, string(data), "\n  \"status\"")

	compact := FormatCompact(testSnapshot(t))
	assert.NotContains(t, string(compact), "\n")
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := testSnapshot(t)
	snap.Network = &NetworkInfo{Type: "ethernet", IP: "10.0.0.5", Status: "up", Gateway: "10.0.0.1"}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))
	require.NotNil(t, parsed.Status.Network)
	assert.Equal(t, "10.0.0.5", parsed.Status.Network.IP)
	assert.Equal(t, "10.0.0.1", parsed.Status.Network.Gateway)
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(t), "SHUTDOWN", "SENSOR_FAULT")

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "SHUTDOWN", parsed.Status.Event)
	assert.Equal(t, "SENSOR_FAULT", parsed.Status.Reason)
	assert.Equal(t, uint64(1), parsed.Status.Cycles)
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 21.063, round3(21.0625))
	assert.Equal(t, -200.0, round3(-200))
}
