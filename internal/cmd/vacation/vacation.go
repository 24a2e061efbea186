package vacation

import (
	"context"
	"errors"
	"fmt"
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/clambin/go-common/charmer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
	"time"
)

var (
	Cmd = cobra.Command{
		Use:   "vacation",
		Short: "Set or clear a device's vacation window",
		RunE:  setVacation(os.Stdout, viper.GetViper()),
	}

	args = charmer.Arguments{
		"modem": {Default: "", Help: "modem serial of the device"},
		"start": {Default: "", Help: "start of the vacation window (RFC 3339 or YYYY-MM-DD)"},
		"end":   {Default: "", Help: "end of the vacation window (RFC 3339 or YYYY-MM-DD)"},
		"clear": {Default: false, Help: "clear the vacation window"},
	}
)

func init() {
	_ = charmer.SetPersistentFlags(&Cmd, viper.GetViper(), args)
}

// A Commander sends a vacation window to a device.
type Commander interface {
	SetVacationPeriod(ctx context.Context, modem string, start, end time.Time) (aldes.CommandResult, error)
}

func setVacation(w io.Writer, v *viper.Viper) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		api := aldes.New(v.GetString("aldes.username"), v.GetString("aldes.password"))
		if apiKey := v.GetString("aldes.apikey"); apiKey != "" {
			api.APIKey = apiKey
		}
		return SetVacation(cmd.Context(), api, w, v.GetString("modem"), v.GetString("start"), v.GetString("end"), v.GetBool("clear"))
	}
}

// SetVacation sets the vacation window on the device with the given modem
// serial, or clears it.
func SetVacation(ctx context.Context, c Commander, w io.Writer, modem, start, end string, clear bool) error {
	if modem == "" {
		return errors.New("--modem is required")
	}

	var startTime, endTime time.Time
	if !clear {
		var err error
		if startTime, err = parseStamp(start); err != nil {
			return fmt.Errorf("invalid start: %w", err)
		}
		if endTime, err = parseStamp(end); err != nil {
			return fmt.Errorf("invalid end: %w", err)
		}
		if !endTime.After(startTime) {
			return errors.New("end must be after start")
		}
	}

	if _, err := c.SetVacationPeriod(ctx, modem, startTime, endTime); err != nil {
		return err
	}

	if clear {
		_, _ = fmt.Fprintf(w, "cleared vacation window for %s\n", modem)
	} else {
		_, _ = fmt.Fprintf(w, "set vacation window for %s: %s to %s\n",
			modem, startTime.Format(time.RFC3339), endTime.Format(time.RFC3339),
		)
	}
	return nil
}

var stampLayouts = []string{time.RFC3339, "2006-01-02"}

func parseStamp(value string) (time.Time, error) {
	for _, layout := range stampLayouts {
		if stamp, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return stamp, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp: %q (use RFC 3339 or YYYY-MM-DD)", value)
}
