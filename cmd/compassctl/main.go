// Command compassctl is a developer tool for checking map coordinate
// conversions and replaying recorded scenarios without a game client.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/compassradar/extension/internal/config"
	"github.com/compassradar/extension/internal/geo"
	"github.com/compassradar/extension/internal/logging"
	"github.com/compassradar/extension/internal/policy/island"
	"github.com/compassradar/extension/internal/scenario"
	"github.com/compassradar/extension/pkg/core"
)

var errUsage = errors.New("usage")

const usage = `usage:
  compassctl mapcoord <scale> <offsetX> <offsetY> <zOffset> <x,y,z>
  compassctl worldpos <scale> <offsetX> <offsetY> <zOffset> <X,Y[,Z]>
  compassctl simulate <scenario.yaml> [configDir]`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch strings.ToLower(args[0]) {
	case "mapcoord":
		m, rest, err := mapParams(args[1:])
		if err != nil {
			return err
		}
		pos, err := geo.WorldPositionFromString(rest)
		if err != nil {
			return err
		}
		c := geo.WorldToMapCoordinate(pos, m)
		fmt.Fprintln(out, geo.FormatMapCoordinate(c, m.HasZAxis()))
		return nil

	case "worldpos":
		m, rest, err := mapParams(args[1:])
		if err != nil {
			return err
		}
		c, err := geo.MapCoordinateFromString(rest)
		if err != nil {
			return err
		}
		pos := geo.MapCoordinateToWorld(c, m)
		fmt.Fprintf(out, "%.2f,%.2f,%.2f\n", pos.X, pos.Y, pos.Z)
		return nil

	case "simulate":
		if len(args) < 2 {
			return errUsage
		}
		configDir := ""
		if len(args) > 2 {
			configDir = args[2]
		}
		return simulate(args[1], configDir, out)

	default:
		return errUsage
	}
}

// mapParams parses "<scale> <offsetX> <offsetY> <zOffset> <coords>".
func mapParams(args []string) (core.MapParameters, string, error) {
	if len(args) != 5 {
		return core.MapParameters{}, "", errUsage
	}
	scale, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return core.MapParameters{}, "", fmt.Errorf("scale: %w", err)
	}
	var offsets [3]int16
	for i := range offsets {
		v, err := strconv.ParseInt(args[i+1], 10, 16)
		if err != nil {
			return core.MapParameters{}, "", fmt.Errorf("offset %d: %w", i+1, err)
		}
		offsets[i] = int16(v)
	}
	return core.MapParameters{
		Scale:   uint16(scale),
		OffsetX: offsets[0],
		OffsetY: offsets[1],
		ZOffset: offsets[2],
	}, args[4], nil
}

// simulate replays a scenario and prints one JSON frame per line followed
// by the final status and any chat messages.
func simulate(path, configDir string, out io.Writer) error {
	if configDir != "" {
		if err := config.Load(configDir); err != nil {
			return err
		}
	} else {
		config.LoadDefaults()
	}

	slogManager := logging.NewSlogManager()
	slogManager.SetupWith(logging.SetupOptions{File: io.Discard, Level: config.GetString("logLevel")})

	sc, err := scenario.LoadFile(path)
	if err != nil {
		return err
	}
	tables, err := island.DefaultTables()
	if err != nil {
		return err
	}

	res, err := scenario.Run(context.Background(), sc, config.ViperSource{}, tables, slogManager.Logger())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for _, f := range res.Frames {
		if err := enc.Encode(f); err != nil {
			return err
		}
	}
	for _, msg := range res.Chats {
		fmt.Fprintln(out, "chat:", msg)
	}
	return enc.Encode(res.Status)
}
