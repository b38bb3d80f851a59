// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package expr

import (
	"fmt"
	"math"
)

// funcArity documents the closed function set and its expected argument
// count; anything not in this table is rejected at parse time.
var funcArity = map[string]int{
	"sin": 1, "cos": 1, "tan": 1, "abs": 1, "round": 1, "sqrt": 1,
	"floor": 1, "ceil": 1, "log": 1, "exp": 1,
	"min": 2, "max": 2, "pow": 2, "mod": 2,
	"clamp":        3,
	"clamp_dmx":    1,
	"hsv_to_rgb":   3,
	"hsv_to_rgb_r": 3,
	"hsv_to_rgb_g": 3,
	"hsv_to_rgb_b": 3,
}

func isKnownFunction(name string) bool {
	_, ok := funcArity[name]
	return ok
}

func callFunction(name string, args []float64) (float64, error) {
	switch name {
	case "sin":
		return math.Sin(args[0]), nil
	case "cos":
		return math.Cos(args[0]), nil
	case "tan":
		return math.Tan(args[0]), nil
	case "abs":
		return math.Abs(args[0]), nil
	case "round":
		return math.Round(args[0]), nil
	case "sqrt":
		if args[0] < 0 {
			return 0, nil
		}
		return math.Sqrt(args[0]), nil
	case "floor":
		return math.Floor(args[0]), nil
	case "ceil":
		return math.Ceil(args[0]), nil
	case "log":
		if args[0] <= 0 {
			return 0, nil
		}
		return math.Log(args[0]), nil
	case "exp":
		return math.Exp(args[0]), nil
	case "min":
		return math.Min(args[0], args[1]), nil
	case "max":
		return math.Max(args[0], args[1]), nil
	case "pow":
		return math.Pow(args[0], args[1]), nil
	case "mod":
		if args[1] == 0 {
			return 0, nil
		}
		return math.Mod(args[0], args[1]), nil
	case "clamp":
		return clampf(args[0], args[1], args[2]), nil
	case "clamp_dmx":
		return clampf(args[0], 0, 255), nil
	case "hsv_to_rgb_r":
		rgb, err := hsvToRGB(args)
		if err != nil {
			return 0, err
		}
		return rgb[0], nil
	case "hsv_to_rgb_g":
		rgb, err := hsvToRGB(args)
		if err != nil {
			return 0, err
		}
		return rgb[1], nil
	case "hsv_to_rgb_b":
		rgb, err := hsvToRGB(args)
		if err != nil {
			return 0, err
		}
		return rgb[2], nil
	case "hsv_to_rgb":
		// Bare hsv_to_rgb() with no subscript: not meaningful as a scalar.
		// Return the red component as a reasonable fallback
		// so a malformed-but-parseable expression still yields a number.
		rgb, err := hsvToRGB(args)
		if err != nil {
			return 0, err
		}
		return rgb[0], nil
	}
	return 0, fmt.Errorf("unknown function %q", name)
}

func clampf(x, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// hsvToRGB converts h (degrees, any range - wrapped to [0,360)), s and v
// (expected [0,1], clamped) into an [r,g,b] triple in [0,255].
func hsvToRGB(args []float64) ([3]float64, error) {
	if len(args) != 3 {
		return [3]float64{}, fmt.Errorf("hsv_to_rgb expects 3 arguments")
	}
	h := math.Mod(args[0], 360)
	if h < 0 {
		h += 360
	}
	s := clampf(args[1], 0, 1)
	v := clampf(args[2], 0, 1)

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return [3]float64{
		clampf((r+m)*255, 0, 255),
		clampf((g+m)*255, 0, 255),
		clampf((b+m)*255, 0, 255),
	}, nil
}
