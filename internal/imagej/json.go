/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imagej

import (
	"encoding/json"
	"fmt"

	"roibridge/internal/geom"
)

// regionDoc is the JSON form of a Roi. The kind travels as its string name
// and the property map is flattened into an explicit field so it survives
// the trip through the codec.
type regionDoc struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`

	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	W float64 `json:"w,omitempty"`
	H float64 `json:"h,omitempty"`

	X1           float64 `json:"x1,omitempty"`
	Y1           float64 `json:"y1,omitempty"`
	X2           float64 `json:"x2,omitempty"`
	Y2           float64 `json:"y2,omitempty"`
	DoubleHeaded bool    `json:"doubleHeaded,omitempty"`

	Points []geom.Pt `json:"points,omitempty"`

	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`

	C int `json:"c"`
	Z int `json:"z"`
	T int `json:"t"`

	Raster  []byte `json:"raster,omitempty"`
	RasterW int    `json:"rasterW,omitempty"`
	RasterH int    `json:"rasterH,omitempty"`

	Props map[string]string `json:"props,omitempty"`
}

// kindFromName is the inverse of Kind.String.
func kindFromName(name string) (Kind, error) {
	for k := KindRectangle; k <= KindComposite; k++ {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown region kind %q", name)
}

// EncodeRegions serializes regions as an indented JSON array with a trailing
// newline.
func EncodeRegions(regions []Roi) ([]byte, error) {
	docs := make([]regionDoc, len(regions))
	for i := range regions {
		r := &regions[i]
		docs[i] = regionDoc{
			Kind:         r.Kind.String(),
			Name:         r.Name,
			X:            r.X,
			Y:            r.Y,
			W:            r.W,
			H:            r.H,
			X1:           r.X1,
			Y1:           r.Y1,
			X2:           r.X2,
			Y2:           r.Y2,
			DoubleHeaded: r.DoubleHeaded,
			Points:       r.Points,
			Text:         r.Text,
			FontSize:     r.FontSize,
			C:            r.C,
			Z:            r.Z,
			T:            r.T,
			Raster:       r.Raster,
			RasterW:      r.RasterW,
			RasterH:      r.RasterH,
		}
		if len(r.props) > 0 {
			docs[i].Props = r.Props()
		}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode regions: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeRegions parses a JSON array produced by EncodeRegions. Position
// fields left out of a hand-written file mean "not pinned", so each element
// starts from PositionUnset rather than the zero plane.
func DecodeRegions(data []byte) ([]Roi, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}
	regions := make([]Roi, len(raws))
	for i := range raws {
		d := &regionDoc{C: PositionUnset, Z: PositionUnset, T: PositionUnset}
		if err := json.Unmarshal(raws[i], d); err != nil {
			return nil, fmt.Errorf("decode region %d: %w", i, err)
		}
		kind, err := kindFromName(d.Kind)
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}
		r := Roi{
			Kind:         kind,
			Name:         d.Name,
			X:            d.X,
			Y:            d.Y,
			W:            d.W,
			H:            d.H,
			X1:           d.X1,
			Y1:           d.Y1,
			X2:           d.X2,
			Y2:           d.Y2,
			DoubleHeaded: d.DoubleHeaded,
			Points:       d.Points,
			Text:         d.Text,
			FontSize:     d.FontSize,
			C:            d.C,
			Z:            d.Z,
			T:            d.T,
			Raster:       d.Raster,
			RasterW:      d.RasterW,
			RasterH:      d.RasterH,
		}
		for k, v := range d.Props {
			r.SetProp(k, v)
		}
		regions[i] = r
	}
	return regions, nil
}
