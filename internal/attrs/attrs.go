// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package attrs

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/staranto/stockctl/internal/config"
)

// Attr is one column to be included in the output.
type Attr struct {
	// The table column to read.
	Key string
	// Should this Attr be included in output or is it just
	// intended for filtering and sorting?
	Include bool
	// The key to use in the output. This is also the column title when
	// output=text.
	OutputKey string
	// Transformation spec to apply to the output value.
	TransformSpec string
}

var lengthRe = regexp.MustCompile(`-?\d+`)

// Transform applies the attr's transformation spec to value.
//
//	t   convert RFC3339 timestamps to the configured timezone
//	l u lower or upper case
//	c   group digits of numbers with commas
//	N   truncate to N characters, -N elides the middle
func (a *Attr) Transform(value interface{}) interface{} {
	if f, ok := value.(float64); ok {
		if strings.Contains(a.TransformSpec, "c") {
			return humanize.Commaf(f)
		}
		return value
	}

	result, ok := value.(string)
	if !ok {
		return value
	}

	// Convert UTC time to local.
	if strings.ContainsAny(a.TransformSpec, "tT") {
		// We're only going to convert if we've specifically told what TZ to use.
		// If we haven't, we'll just use the value as is.
		if tz := timezone(); tz != "" {
			loc, err := time.LoadLocation(tz)
			if err == nil {
				t, err := time.Parse(time.RFC3339, result)
				if err == nil {
					result = t.In(loc).Format("2006-01-02T15:04:05MST")
				} else {
					log.Debugf("not a timestamp: %s", result)
				}
			}
		}
	}

	// The last case transformation wins. A global spec is prepended to the
	// attr's own so the attr's carries more weight.
	// IOW...  --columns '*::U,Ticker::l' will be lower case.
	lastL := strings.LastIndexAny(a.TransformSpec, "lL")
	lastU := strings.LastIndexAny(a.TransformSpec, "uU")

	if lastL > lastU {
		result = strings.ToLower(result)
	} else if lastU > lastL {
		result = strings.ToUpper(result)
	}

	// Length-based transformation, same override logic as case.
	if match := lengthRe.FindAllString(a.TransformSpec, -1); len(match) != 0 {
		l, _ := strconv.Atoi(match[len(match)-1])
		abs := int(math.Abs(float64(l)))
		if len(result) > abs {
			if l < 0 {
				lr := abs/2 - 1
				if lr < 1 {
					lr = 1
				}
				result = result[0:lr] + ".." + result[len(result)-lr:]
			} else {
				result = result[:l]
			}
		}
	}

	return result
}

// timezone returns STOCKCTL_TZ, then timezone from the config file, then TZ.
func timezone() string {
	if tz := os.Getenv("STOCKCTL_TZ"); tz != "" {
		return tz
	}
	if tz, _ := config.GetString("timezone", ""); tz != "" {
		return tz
	}
	return os.Getenv("TZ")
}

type AttrList []Attr

// Defaults returns an AttrList including every column, in order.
func Defaults(columns []string) AttrList {
	out := make(AttrList, 0, len(columns))
	for _, c := range columns {
		out = append(out, Attr{Key: c, Include: true, OutputKey: c})
	}
	return out
}

// String returns a representation in the --columns flag format.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		result = append(result, fmt.Sprintf("%s:%s:%s", attr.Key, attr.OutputKey, attr.TransformSpec))
	}
	return strings.Join(result, ",")
}

// Set parses each spec from the --columns flag and merges it into the list.
func (a *AttrList) Set(value string) error {
	if value == "" || value == "*" {
		return nil
	}

	const (
		keyIdx = iota
		outputIdx
		transformIdx
	)

	// There are three : delimited fields in each spec: the column, the output
	// key and the transformation spec. The latter two are optional and the
	// output key defaults to the column name.
	specs := strings.Split(value, ",")
specloop:
	for _, spec := range specs {
		attr := Attr{Include: true}

		fields := strings.Split(spec, ":")

		// A leading ! keeps the column for filtering and sorting only.
		attr.Key = strings.TrimSpace(fields[keyIdx])
		if strings.HasPrefix(attr.Key, "!") {
			attr.Include = false
			attr.Key = attr.Key[1:]
		}
		if attr.Key == "" {
			return fmt.Errorf("empty column in spec: %q", spec)
		}

		if attr.Key == "*" {
			attr.Include = false
		}

		attr.OutputKey = attr.Key
		if len(fields) > outputIdx && strings.TrimSpace(fields[outputIdx]) != "" {
			attr.OutputKey = strings.TrimSpace(fields[outputIdx])
		}

		if len(fields) > transformIdx {
			attr.TransformSpec = strings.TrimSpace(fields[transformIdx])
		}

		// If the column is already in the list (because it's one of the
		// defaults or the user double-entered it) update it in place.
		for i := range *a {
			if (*a)[i].Key == attr.Key || (*a)[i].OutputKey == attr.Key {
				(*a)[i].Include = attr.Include
				(*a)[i].OutputKey = attr.OutputKey
				(*a)[i].TransformSpec = attr.TransformSpec
				continue specloop
			}
		}

		*a = append(*a, attr)
	}

	return nil
}

// Select narrows the list to the columns named by spec, in spec order. The
// global * entry, when present, is kept so its transform can be applied.
func (a AttrList) Select(spec string) (AttrList, error) {
	if spec == "" || spec == "*" {
		return a, nil
	}

	var picked AttrList
	if err := picked.Set(spec); err != nil {
		return nil, err
	}

	for _, p := range picked {
		if p.Key == "*" {
			continue
		}
		found := false
		for _, c := range a {
			if c.Key == p.Key {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown column: %s", p.Key)
		}
	}

	return picked, nil
}

// SetGlobalTransformSpec inserts a global transform spec into the front of all
// attrs in the list.
func (alist *AttrList) SetGlobalTransformSpec() error {
	spec := ""

	// If there is more than one global spec, only the first is used.
	for a := range *alist {
		if (*alist)[a].Key == "*" {
			spec = (*alist)[a].TransformSpec
			break
		}
	}

	if spec == "" {
		return nil
	}

	for a := range *alist {
		(*alist)[a].TransformSpec = spec + "," + (*alist)[a].TransformSpec
	}

	return nil
}

func (a *AttrList) Type() string {
	return "list"
}
