// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// Calibration (blocking, before the loop starts)
	CalibrationSamples  int
	CalibrationInterval time.Duration

	// Motor driver (TB6612FNG) pin names
	MotorAIn1   string
	MotorAIn2   string
	MotorAPWM   string
	MotorBIn1   string
	MotorBIn2   string
	MotorBPWM   string
	MotorSTBY   string
	MotorPWMHz  int
	MotorInvert bool // swap A/B sides

	// Ultrasonic ranger (HC-SR04)
	RangeTrigPin     string
	RangeEchoPin     string
	RangeEchoTimeout time.Duration

	// Buttons, in index order (K1..K4)
	ButtonPins []string

	// Display
	DisplayI2CBus string

	// Timing
	LoopInterval    time.Duration
	RangeInterval   time.Duration
	DisplayInterval time.Duration
	RestartDelay    time.Duration

	// Debounce
	ButtonPollInterval time.Duration
	ButtonDebounce     time.Duration
	ButtonLongPress    time.Duration
	ButtonShortWindow  time.Duration
	ButtonSettle       time.Duration

	// Attitude filter
	GyroWeight       float64
	YawZeroThreshold float64 // deg/s
	YawZeroHold      time.Duration
	AccelDeadband    float64 // m/s²
	VelocityDecay    float64 // per tick

	// Avoidance
	BaseSpeed       int
	StopDistanceCm  float64
	SteerDistanceCm float64
	SteerRatio      float64
	ReverseDuration time.Duration
	PauseDuration   time.Duration
	TargetYawChange float64 // degrees

	// Logging. On /dev/serial0 the UART takes GPIO14 and GPIO15, so no
	// other pin may use them while this is set.
	LogSerialPort string
	LogSerialBaud int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration matching the reference vehicle wiring.
func Default() *Config {
	return &Config{
		IMUSPIDevice:  "/dev/spidev0.0",
		IMUCSPin:      "GPIO8",
		IMUAccelRange: 2,
		IMUGyroRange:  1,

		CalibrationSamples:  1000,
		CalibrationInterval: 5 * time.Millisecond,

		MotorAIn1:  "GPIO23",
		MotorAIn2:  "GPIO24",
		MotorAPWM:  "GPIO12",
		MotorBIn1:  "GPIO5",
		MotorBIn2:  "GPIO6",
		MotorBPWM:  "GPIO13",
		MotorSTBY:  "GPIO25",
		MotorPWMHz: 1000,

		RangeTrigPin:     "GPIO20",
		RangeEchoPin:     "GPIO21",
		RangeEchoTimeout: 30 * time.Millisecond,

		ButtonPins: []string{"GPIO16", "GPIO17", "GPIO18", "GPIO27"},

		DisplayI2CBus: "",

		LoopInterval:    5 * time.Millisecond,
		RangeInterval:   60 * time.Millisecond,
		DisplayInterval: 200 * time.Millisecond,
		RestartDelay:    100 * time.Millisecond,

		ButtonPollInterval: 10 * time.Millisecond,
		ButtonDebounce:     20 * time.Millisecond,
		ButtonLongPress:    1000 * time.Millisecond,
		ButtonShortWindow:  500 * time.Millisecond,
		ButtonSettle:       500 * time.Millisecond,

		GyroWeight:       0.98,
		YawZeroThreshold: 0.1,
		YawZeroHold:      2000 * time.Millisecond,
		AccelDeadband:    0.05,
		VelocityDecay:    0.99,

		BaseSpeed:       200,
		StopDistanceCm:  8,
		SteerDistanceCm: 15,
		SteerRatio:      0.5,
		ReverseDuration: 3000 * time.Millisecond,
		PauseDuration:   2000 * time.Millisecond,
		TargetYawChange: 45,

		LogSerialBaud: 115200,
	}
}

// Load reads the configuration file and returns a Config struct.
// Keys missing from the file keep their Default() value.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// IMU Sensor Ranges
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// Calibration
	case "CALIBRATION_SAMPLES":
		c.CalibrationSamples, err = parseInt(key, value)
	case "CALIBRATION_INTERVAL":
		c.CalibrationInterval, err = parseMillis(key, value)

	// Motor driver
	case "MOTOR_A_IN1":
		c.MotorAIn1 = value
	case "MOTOR_A_IN2":
		c.MotorAIn2 = value
	case "MOTOR_A_PWM":
		c.MotorAPWM = value
	case "MOTOR_B_IN1":
		c.MotorBIn1 = value
	case "MOTOR_B_IN2":
		c.MotorBIn2 = value
	case "MOTOR_B_PWM":
		c.MotorBPWM = value
	case "MOTOR_STBY":
		c.MotorSTBY = value
	case "MOTOR_PWM_HZ":
		c.MotorPWMHz, err = parseInt(key, value)
	case "MOTOR_INVERT":
		c.MotorInvert, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_INVERT %q: %w", value, err)
		}

	// Ultrasonic
	case "RANGE_TRIG_PIN":
		c.RangeTrigPin = value
	case "RANGE_ECHO_PIN":
		c.RangeEchoPin = value
	case "RANGE_ECHO_TIMEOUT":
		c.RangeEchoTimeout, err = parseMillis(key, value)

	// Buttons
	case "BUTTON_PINS":
		var pins []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				pins = append(pins, p)
			}
		}
		c.ButtonPins = pins

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value

	// Timing
	case "LOOP_INTERVAL":
		c.LoopInterval, err = parseMillis(key, value)
	case "RANGE_INTERVAL":
		c.RangeInterval, err = parseMillis(key, value)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayInterval, err = parseMillis(key, value)
	case "RESTART_DELAY":
		c.RestartDelay, err = parseMillis(key, value)

	// Debounce
	case "BUTTON_POLL_INTERVAL":
		c.ButtonPollInterval, err = parseMillis(key, value)
	case "BUTTON_DEBOUNCE":
		c.ButtonDebounce, err = parseMillis(key, value)
	case "BUTTON_LONG_PRESS":
		c.ButtonLongPress, err = parseMillis(key, value)
	case "BUTTON_SHORT_WINDOW":
		c.ButtonShortWindow, err = parseMillis(key, value)
	case "BUTTON_SETTLE":
		c.ButtonSettle, err = parseMillis(key, value)

	// Attitude filter
	case "GYRO_WEIGHT":
		c.GyroWeight, err = parseFloat(key, value)
	case "YAW_ZERO_THRESHOLD":
		c.YawZeroThreshold, err = parseFloat(key, value)
	case "YAW_ZERO_HOLD":
		c.YawZeroHold, err = parseMillis(key, value)
	case "ACCEL_DEADBAND":
		c.AccelDeadband, err = parseFloat(key, value)
	case "VELOCITY_DECAY":
		c.VelocityDecay, err = parseFloat(key, value)

	// Avoidance
	case "BASE_SPEED":
		c.BaseSpeed, err = parseInt(key, value)
	case "STOP_DISTANCE_CM":
		c.StopDistanceCm, err = parseFloat(key, value)
	case "STEER_DISTANCE_CM":
		c.SteerDistanceCm, err = parseFloat(key, value)
	case "STEER_RATIO":
		c.SteerRatio, err = parseFloat(key, value)
	case "REVERSE_DURATION":
		c.ReverseDuration, err = parseMillis(key, value)
	case "PAUSE_DURATION":
		c.PauseDuration, err = parseMillis(key, value)
	case "TARGET_YAW_CHANGE":
		c.TargetYawChange, err = parseFloat(key, value)

	// Logging
	case "LOG_SERIAL_PORT":
		c.LogSerialPort = value
	case "LOG_SERIAL_BAUD":
		c.LogSerialBaud, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// parseMillis reads a plain integer as milliseconds, or any time.ParseDuration string.
func parseMillis(key, value string) (time.Duration, error) {
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

// validate checks that all required fields are set and within range.
func (c *Config) validate() error {
	if c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required")
	}
	if len(c.ButtonPins) != 4 {
		return fmt.Errorf("BUTTON_PINS must list 4 pins, got %d", len(c.ButtonPins))
	}
	if c.LoopInterval <= 0 {
		return fmt.Errorf("LOOP_INTERVAL must be positive")
	}
	if c.CalibrationSamples <= 0 {
		return fmt.Errorf("CALIBRATION_SAMPLES must be positive, got %d", c.CalibrationSamples)
	}
	if c.BaseSpeed < 0 || c.BaseSpeed > 255 {
		return fmt.Errorf("BASE_SPEED must be 0-255, got %d", c.BaseSpeed)
	}
	if c.StopDistanceCm <= 0 || c.SteerDistanceCm < c.StopDistanceCm {
		return fmt.Errorf("need 0 < STOP_DISTANCE_CM (%.1f) <= STEER_DISTANCE_CM (%.1f)", c.StopDistanceCm, c.SteerDistanceCm)
	}
	if c.SteerRatio < 0 || c.SteerRatio > 1 {
		return fmt.Errorf("STEER_RATIO must be 0-1, got %.2f", c.SteerRatio)
	}
	if c.GyroWeight < 0 || c.GyroWeight > 1 {
		return fmt.Errorf("GYRO_WEIGHT must be 0-1, got %.3f", c.GyroWeight)
	}
	if c.VelocityDecay <= 0 || c.VelocityDecay > 1 {
		return fmt.Errorf("VELOCITY_DECAY must be in (0, 1], got %.3f", c.VelocityDecay)
	}
	return c.validatePins()
}

// Header pins owned by peripherals: SPI0 (CE1, CE0, MISO, MOSI, SCLK) and
// the primary UART (TXD, RXD).
var (
	spi0Pins = map[string]bool{"GPIO7": true, "GPIO8": true, "GPIO9": true, "GPIO10": true, "GPIO11": true}
	uartPins = map[string]bool{"GPIO14": true, "GPIO15": true}
)

// validatePins rejects GPIO assignments that collide with each other or
// with the IMU's SPI0 bus and the serial log UART.
func (c *Config) validatePins() error {
	type assignment struct{ key, pin string }
	pins := []assignment{
		{"MOTOR_A_IN1", c.MotorAIn1},
		{"MOTOR_A_IN2", c.MotorAIn2},
		{"MOTOR_A_PWM", c.MotorAPWM},
		{"MOTOR_B_IN1", c.MotorBIn1},
		{"MOTOR_B_IN2", c.MotorBIn2},
		{"MOTOR_B_PWM", c.MotorBPWM},
		{"MOTOR_STBY", c.MotorSTBY},
		{"RANGE_TRIG_PIN", c.RangeTrigPin},
		{"RANGE_ECHO_PIN", c.RangeEchoPin},
	}
	for i, p := range c.ButtonPins {
		pins = append(pins, assignment{fmt.Sprintf("BUTTON_PINS[%d]", i), p})
	}

	onSPI0 := strings.HasPrefix(c.IMUSPIDevice, "/dev/spidev0.")
	seen := map[string]string{c.IMUCSPin: "IMU_CS_PIN"}
	for _, a := range pins {
		if a.pin == "" {
			continue
		}
		if onSPI0 && spi0Pins[a.pin] {
			return fmt.Errorf("%s=%s is on the IMU's SPI0 bus (GPIO7-11)", a.key, a.pin)
		}
		if c.LogSerialPort != "" && uartPins[a.pin] {
			return fmt.Errorf("%s=%s is a UART pin, used by LOG_SERIAL_PORT", a.key, a.pin)
		}
		if other, ok := seen[a.pin]; ok {
			return fmt.Errorf("%s and %s both use %s", other, a.key, a.pin)
		}
		seen[a.pin] = a.key
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// An empty path keeps the defaults.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		if configPath == "" {
			globalConfig = Default()
			return
		}
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
