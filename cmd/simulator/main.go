package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-logbook/internal/models"
)

var errConflict = errors.New("conflict")

// Client talks to the logbook API on behalf of one operator.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func newClient(baseURL, token string) *Client {
	return &Client{BaseURL: baseURL, Token: token, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, errConflict)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s %s failed with status: %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Login exchanges credentials for a bearer token and keeps it.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp models.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	c.Token = resp.Token
	return nil
}

// EnsureVehicle registers plate, or loads it when it already exists.
func (c *Client) EnsureVehicle(ctx context.Context, plate string, initialMileage int) (models.VehicleSnapshot, error) {
	var snap models.VehicleSnapshot
	err := c.do(ctx, http.MethodPost, "/vehicles", models.CreateVehicleRequest{LicensePlate: plate, InitialMileage: initialMileage}, &snap)
	if errors.Is(err, errConflict) {
		err = c.do(ctx, http.MethodGet, "/vehicles/"+plate, nil, &snap)
	}
	return snap, err
}

// VehicleState is the simulated odometer of one vehicle.
type VehicleState struct {
	Plate         string
	Odometer      float64
	SpeedKmh      float64
	LastOilChange int
	Alerts        map[string]string
}

// step advances the odometer by simulated driving and returns the km driven.
func step(s *VehicleState, simulated time.Duration) float64 {
	s.SpeedKmh += (rand.Float64()*2 - 1) * 5
	if s.SpeedKmh < 30 {
		s.SpeedKmh = 30
	}
	if s.SpeedKmh > 120 {
		s.SpeedKmh = 120
	}
	km := s.SpeedKmh * simulated.Hours()
	s.Odometer += km
	return km
}

// oilChangeDue reports whether the odometer reached the next oil change.
func oilChangeDue(s *VehicleState) bool {
	return s.Odometer >= float64(s.LastOilChange+models.OilChangeIntervalKm)
}

func reportMileage(ctx context.Context, c *Client, s *VehicleState) error {
	var snap models.VehicleSnapshot
	if err := c.do(ctx, http.MethodPut, "/vehicles/"+s.Plate+"/mileage", models.MileageRequest{Mileage: int(s.Odometer)}, &snap); err != nil {
		return err
	}
	for category, message := range snap.Alerts {
		if s.Alerts[category] != message {
			log.WithFields(log.Fields{"license_plate": s.Plate, "category": category}).Warn(message)
		}
	}
	s.Alerts = snap.Alerts
	return nil
}

func changeOil(ctx context.Context, c *Client, s *VehicleState, now time.Time) error {
	req := models.MaintenanceRequest{
		Description: "Oil and filter change",
		Date:        now.Format(models.DateLayout),
		Mileage:     int(s.Odometer),
		Cost:        60 + float64(rand.Intn(60)),
	}
	if err := c.do(ctx, http.MethodPost, "/vehicles/"+s.Plate+"/records", req, nil); err != nil {
		return err
	}
	s.LastOilChange = req.Mileage
	log.WithFields(log.Fields{
		"license_plate": s.Plate,
		"mileage":       humanize.Comma(int64(req.Mileage)),
		"cost":          req.Cost,
	}).Info("Recorded oil change")
	return nil
}

func simulateVehicle(ctx context.Context, c *Client, s *VehicleState, interval time.Duration, timeScale float64) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		step(s, time.Duration(float64(interval)*timeScale))
		if err := reportMileage(ctx, c, s); err != nil {
			log.WithError(err).WithField("license_plate", s.Plate).Error("Failed to report mileage")
			continue
		}
		if oilChangeDue(s) {
			if err := changeOil(ctx, c, s, time.Now()); err != nil {
				log.WithError(err).WithField("license_plate", s.Plate).Error("Failed to record oil change")
			}
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func main() {
	apiURL := getEnv("API_BASE_URL", "http://localhost:8080/api")
	fleetSize := getEnvInt("FLEET_SIZE", 3)
	interval := time.Duration(getEnvInt("SIM_TICK_SECONDS", 2)) * time.Second
	timeScale := float64(getEnvInt("SIM_TIME_SCALE", 600))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newClient(apiURL, os.Getenv("SIM_AUTH_TOKEN"))
	if c.Token == "" {
		if err := c.Login(ctx, getEnv("SIM_USERNAME", "admin"), os.Getenv("SIM_PASSWORD")); err != nil {
			log.WithError(err).Fatal("Cannot authenticate simulator")
		}
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
		"time_scale": timeScale,
	}).Info("Starting odometer simulation")

	states := make([]*VehicleState, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		plate := fmt.Sprintf("SIM-%02d", i+1)
		snap, err := c.EnsureVehicle(ctx, plate, 10000+rand.Intn(150000))
		if err != nil {
			log.WithError(err).WithField("license_plate", plate).Error("Failed to register vehicle")
			continue
		}
		states = append(states, &VehicleState{
			Plate:         snap.LicensePlate,
			Odometer:      float64(snap.CurrentMileage),
			SpeedKmh:      50 + rand.Float64()*40,
			LastOilChange: snap.CurrentMileage - rand.Intn(models.OilChangeIntervalKm),
			Alerts:        snap.Alerts,
		})
	}

	log.WithField("vehicles", len(states)).Info("Vehicle registration completed")
	if len(states) == 0 {
		log.Error("No vehicles registered. Ensure the operator may create vehicles and the API is reachable. Exiting.")
		return
	}

	for _, s := range states {
		go simulateVehicle(ctx, c, s, interval, timeScale)
	}
	<-ctx.Done()
	log.Info("Simulation stopped")
}
