package sinope

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sinopehome/gt125/internal/protocol"
)

// SetText writes attr from its textual form, as typed on the command line
// or received over MQTT. Modes accept their names, away accepts on/off,
// intensity accepts "last" and event takes "<trigger>:<action>". Everything
// else is parsed as a number.
func (c *Client) SetText(ctx context.Context, dev Device, attr protocol.Attribute, text string) error {
	text = strings.ToLower(strings.TrimSpace(text))
	switch attr {
	case protocol.AttrMode:
		mode, err := ParseMode(dev.Capability, text)
		if err != nil {
			n, numErr := strconv.ParseUint(text, 10, 8)
			if numErr != nil {
				return err
			}
			mode = byte(n)
		}
		return c.SetMode(ctx, dev, mode)

	case protocol.AttrAway:
		away, err := parseAway(text)
		if err != nil {
			return err
		}
		return c.Write(ctx, dev, protocol.AttrAway, protocol.EncodeByte(away))

	case protocol.AttrIntensity:
		if text == "last" {
			return c.SetBrightness(ctx, dev, LastBrightness)
		}
		n, err := strconv.ParseUint(text, 10, 8)
		if err != nil {
			return fmt.Errorf("invalid intensity %q", text)
		}
		return c.SetBrightness(ctx, dev, byte(n))

	case protocol.AttrEvent:
		trigger, action, ok := strings.Cut(text, ":")
		if !ok {
			return fmt.Errorf("invalid event %q (use trigger:action, e.g. off:timer)", text)
		}
		tr, ac, err := ParseEvent(trigger, action)
		if err != nil {
			return err
		}
		return c.SetEvent(ctx, dev, tr, ac)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("invalid %s value %q", attr, text)
	}
	return c.WriteValue(ctx, dev, attr, v)
}

// ParseAway reads an away flag: on, away, true or 2 set it; off, home,
// false or 0 clear it.
func ParseAway(text string) (byte, error) {
	return parseAway(strings.ToLower(strings.TrimSpace(text)))
}

func parseAway(text string) (byte, error) {
	switch text {
	case "on", "away", "true", "2":
		return AwayAway, nil
	case "off", "home", "false", "0":
		return AwayHome, nil
	}
	return 0, fmt.Errorf("invalid away value %q (use on or off)", text)
}

// ParseEvent reads an event trigger (on, off, dimmer) and action (none,
// event, timer).
func ParseEvent(trigger, action string) (protocol.EventTrigger, protocol.EventAction, error) {
	var tr protocol.EventTrigger
	switch strings.ToLower(strings.TrimSpace(trigger)) {
	case "on":
		tr = protocol.TriggerOn
	case "off":
		tr = protocol.TriggerOff
	case "dimmer":
		tr = protocol.TriggerDimmer
	default:
		return 0, 0, fmt.Errorf("invalid event trigger %q (use on, off or dimmer)", trigger)
	}

	switch strings.ToLower(strings.TrimSpace(action)) {
	case "none":
		return tr, protocol.ActionNone, nil
	case "event":
		return tr, protocol.ActionEvent, nil
	case "timer":
		return tr, protocol.ActionTimer, nil
	}
	return 0, 0, fmt.Errorf("invalid event action %q (use none, event or timer)", action)
}
