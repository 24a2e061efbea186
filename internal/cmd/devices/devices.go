package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/clambin/go-common/charmer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
)

var (
	Cmd = cobra.Command{
		Use:   "devices",
		Short: "List the devices registered to the account",
		RunE:  showDevices(os.Stdout, viper.GetViper()),
	}

	args = charmer.Arguments{
		"json": {Default: false, Help: "output as JSON"},
	}
)

func init() {
	_ = charmer.SetPersistentFlags(&Cmd, viper.GetViper(), args)
}

// A Getter returns the devices registered to the account.
type Getter interface {
	GetProducts(ctx context.Context, forceRefresh bool) ([]aldes.Product, error)
}

type Encoder interface {
	Encode(any) error
}

func showDevices(w io.Writer, v *viper.Viper) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		api := aldes.New(v.GetString("aldes.username"), v.GetString("aldes.password"))
		if apiKey := v.GetString("aldes.apikey"); apiKey != "" {
			api.APIKey = apiKey
		}
		var e Encoder = tableEncoder{w: w}
		if v.GetBool("json") {
			e = json.NewEncoder(w)
		}
		return ShowDevices(cmd.Context(), api, e)
	}
}

// ShowDevices fetches all devices and writes them to the given Encoder.
func ShowDevices(ctx context.Context, c Getter, e Encoder) error {
	r, err := makeReport(ctx, c)
	if err != nil {
		return err
	}
	return e.Encode(r)
}

type report struct {
	Devices []device
}

type device struct {
	Modem       string
	Name        string
	Type        string
	Connected   bool
	AirMode     string
	WaterMode   string `json:",omitempty"`
	Temperature float64
	Thermostats []zone `json:",omitempty"`
}

type zone struct {
	ID          int
	Name        string
	Temperature float64
	Target      float64
}

func makeReport(ctx context.Context, c Getter) (report, error) {
	products, err := c.GetProducts(ctx, false)
	if err != nil {
		return report{}, fmt.Errorf("aldes: products: %w", err)
	}

	r := report{Devices: make([]device, 0, len(products))}
	for _, p := range products {
		d := device{
			Modem:       p.Modem,
			Name:        p.Name,
			Type:        p.FriendlyName(),
			Connected:   p.IsConnected,
			AirMode:     aldes.AirModeName(p.Indicator.CurrentAirMode),
			Temperature: p.Indicator.MainTemperature,
		}
		if p.HasHotWater() {
			d.WaterMode = p.Indicator.CurrentWaterMode
		}
		for _, t := range p.Indicator.Thermostats {
			d.Thermostats = append(d.Thermostats, zone{
				ID:          t.ID,
				Name:        t.Name,
				Temperature: t.CurrentTemperature,
				Target:      t.TemperatureSet,
			})
		}
		r.Devices = append(r.Devices, d)
	}
	return r, nil
}

const formatString = "%-16s %-20s %-16s %-10v %-6s %-6s %6s\n"

func (r report) writeTo(w io.Writer) {
	_, _ = fmt.Fprintf(w, formatString, "MODEM", "NAME", "TYPE", "CONNECTED", "AIR", "WATER", "TEMP")
	for _, d := range r.Devices {
		_, _ = fmt.Fprintf(w, formatString,
			d.Modem, d.Name, d.Type, d.Connected, d.AirMode, d.WaterMode,
			fmt.Sprintf("%.1fºC", d.Temperature),
		)
	}
}

type tableEncoder struct {
	w io.Writer
}

func (t tableEncoder) Encode(v any) error {
	r, ok := v.(report)
	if !ok {
		return fmt.Errorf("unexpected report type %T", v)
	}
	r.writeTo(t.w)
	return nil
}
