/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"roibridge/internal/config"
	"roibridge/internal/convert"
	"roibridge/internal/crash"
	"roibridge/internal/geom"
	"roibridge/internal/imagej"
	applog "roibridge/internal/log"
	"roibridge/internal/render"
	"roibridge/internal/roi"
	"roibridge/internal/roidoc"
	"roibridge/internal/store"
	"roibridge/internal/telemetry"
	"roibridge/internal/version"
)

func usage() {
	fmt.Println("roibridge — ROI conversion and annotation tooling")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  roibridge version|-v|--version             Show version")
	fmt.Println("  roibridge import <regions.json> <image-id> <out.json>")
	fmt.Println("                                              Group foreign regions into a ROI document")
	fmt.Println("  roibridge export <doc.json> <out.json>      Emit a document's ROIs as foreign regions")
	fmt.Println("  roibridge validate <doc.json>               Check a document against the schema")
	fmt.Println("  roibridge info <doc.json>                   Print a document summary")
	fmt.Println("  roibridge save <doc.json>                   Persist a document's ROIs to the store")
	fmt.Println("  roibridge load <image-id> <out.json>        Write stored ROIs of an image as a document")
	fmt.Println("  roibridge delete <roi-id>                   Remove one ROI from the store")
	fmt.Println("  roibridge render <doc.json> <out.png|.pdf>  Draw ROI outlines")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	telemetry.InitDefault()
	defer crash.Recover(nil)

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		telemetry.Event("command", map[string]any{"name": args[1]})
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println(version.String())
			return
		case "import":
			if len(args) < 5 {
				fmt.Println("import requires <regions.json>, <image-id> and <out.json>")
				usage()
				os.Exit(2)
			}
			data, err := os.ReadFile(args[2])
			if err != nil {
				fail(l, "read regions", err)
			}
			regions, err := imagej.DecodeRegions(data)
			if err != nil {
				fail(l, "decode regions", err)
			}
			imageID, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil {
				fail(l, "parse image id", err)
			}
			cfg := loadConfig(l)
			rois, err := convert.Import(regions, convert.ImportOptions{
				GroupKey: cfg.Convert.GroupKey,
				ImageID:  imageID,
			})
			if err != nil {
				fail(l, "import regions", err)
			}
			doc, err := roidoc.FromROIs(imageID, rois)
			if err != nil {
				fail(l, "build document", err)
			}
			if err := roidoc.Save(args[4], doc); err != nil {
				fail(l, "write document", err)
			}
			fmt.Printf("Imported %d regions into %d ROIs.\n", len(regions), len(rois))
			return
		case "export":
			if len(args) < 4 {
				fmt.Println("export requires <doc.json> and <out.json>")
				usage()
				os.Exit(2)
			}
			doc, err := roidoc.Load(args[2])
			if err != nil {
				fail(l, "load document", err)
			}
			rois, err := doc.ToROIs()
			if err != nil {
				fail(l, "materialize document", err)
			}
			cfg := loadConfig(l)
			regions, err := convert.Export(rois, convert.ExportOptions{
				GroupKey:        cfg.Convert.GroupKey,
				EllipseSegments: cfg.Convert.EllipseSegments,
			})
			if err != nil {
				fail(l, "export rois", err)
			}
			data, err := imagej.EncodeRegions(regions)
			if err != nil {
				fail(l, "encode regions", err)
			}
			if err := os.WriteFile(args[3], data, 0o644); err != nil {
				fail(l, "write regions", err)
			}
			fmt.Printf("Exported %d ROIs as %d regions.\n", len(rois), len(regions))
			return
		case "validate":
			if len(args) < 3 {
				fmt.Println("validate requires <doc.json>")
				usage()
				os.Exit(2)
			}
			data, err := os.ReadFile(args[2])
			if err != nil {
				fail(l, "read document", err)
			}
			if err := roidoc.Validate(data); err != nil {
				fail(l, "validate", err)
			}
			fmt.Println("Document is valid.")
			return
		case "info":
			if len(args) < 3 {
				fmt.Println("info requires <doc.json>")
				usage()
				os.Exit(2)
			}
			doc, err := roidoc.Load(args[2])
			if err != nil {
				fail(l, "load document", err)
			}
			shapes := 0
			for _, r := range doc.ROIs {
				shapes += len(r.Shapes)
			}
			fmt.Printf("Image: %d\n", doc.ImageID)
			fmt.Printf("ROIs: %d\n", len(doc.ROIs))
			fmt.Printf("Shapes: %d\n", shapes)
			return
		case "save":
			if len(args) < 3 {
				fmt.Println("save requires <doc.json>")
				usage()
				os.Exit(2)
			}
			doc, err := roidoc.Load(args[2])
			if err != nil {
				fail(l, "load document", err)
			}
			rois, err := doc.ToROIs()
			if err != nil {
				fail(l, "materialize document", err)
			}
			ctx := context.Background()
			st := openStore(ctx, l)
			defer st.Close()
			if err := st.SaveROIs(ctx, rois); err != nil {
				fail(l, "save rois", err)
			}
			fmt.Printf("Saved %d ROIs.\n", len(rois))
			return
		case "load":
			if len(args) < 4 {
				fmt.Println("load requires <image-id> and <out.json>")
				usage()
				os.Exit(2)
			}
			imageID, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				fail(l, "parse image id", err)
			}
			ctx := context.Background()
			st := openStore(ctx, l)
			defer st.Close()
			rois, err := st.ROIsByImage(ctx, imageID)
			if err != nil {
				fail(l, "load rois", err)
			}
			doc, err := roidoc.FromROIs(imageID, rois)
			if err != nil {
				fail(l, "build document", err)
			}
			if err := roidoc.Save(args[3], doc); err != nil {
				fail(l, "write document", err)
			}
			fmt.Printf("Wrote %d ROIs to %s\n", len(rois), args[3])
			return
		case "delete":
			if len(args) < 3 {
				fmt.Println("delete requires <roi-id>")
				usage()
				os.Exit(2)
			}
			id, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				fail(l, "parse roi id", err)
			}
			ctx := context.Background()
			st := openStore(ctx, l)
			defer st.Close()
			if err := st.DeleteROI(ctx, id); err != nil {
				fail(l, "delete roi", err)
			}
			fmt.Println("Deleted.")
			return
		case "render":
			if len(args) < 4 {
				fmt.Println("render requires <doc.json> and <out.png|.pdf>")
				usage()
				os.Exit(2)
			}
			doc, err := roidoc.Load(args[2])
			if err != nil {
				fail(l, "load document", err)
			}
			rois, err := doc.ToROIs()
			if err != nil {
				fail(l, "materialize document", err)
			}
			out := args[3]
			switch strings.ToLower(filepath.Ext(out)) {
			case ".pdf":
				b, ok := renderBounds(rois)
				if !ok {
					fail(l, "render", fmt.Errorf("document has no shapes"))
				}
				if err := render.ExportPDF(out, b.Max().X+8, b.Max().Y+8, rois, render.PDFOptions{Title: "ROI overlay"}); err != nil {
					fail(l, "render pdf", err)
				}
			default:
				if err := render.SaveOverlayPNG(out, rois, render.OverlayOptions{}); err != nil {
					fail(l, "render overlay", err)
				}
			}
			fmt.Println("Wrote", out)
			return
		}
	}

	usage()
}

func fail(l *slog.Logger, what string, err error) {
	l.Error(what+" failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

// loadConfig loads the user configuration, falling back to defaults so a
// broken config file never blocks a command.
func loadConfig(l *slog.Logger) config.AppConfig {
	cfg, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		return config.Defaults()
	}
	return cfg
}

// renderBounds returns the union of all ROI bounds.
func renderBounds(rois []*roi.ROI) (geom.Rect, bool) {
	var b geom.Rect
	found := false
	for _, r := range rois {
		if r.Len() == 0 {
			continue
		}
		if !found {
			b = r.Bounds()
			found = true
		} else {
			b = b.Union(r.Bounds())
		}
	}
	return b, found
}

// openStore picks the backend from configuration: Postgres when a DSN is
// configured, otherwise the embedded SQLite database.
func openStore(ctx context.Context, l *slog.Logger) store.Store {
	cfg := loadConfig(l)
	if dsn := cfg.Store.PostgresDSN; dsn != "" {
		st, err := store.OpenPostgres(ctx, dsn)
		if err != nil {
			fail(l, "open postgres store", err)
		}
		return st
	}
	path := cfg.Store.SQLitePath
	if path == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = "."
		}
		path = filepath.Join(base, "roibridge", "roi.sqlite")
	}
	st, err := store.OpenSQLite(path)
	if err != nil {
		fail(l, "open sqlite store", err)
	}
	return st
}
