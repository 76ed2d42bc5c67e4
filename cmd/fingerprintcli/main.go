// Command fingerprintcli is a thin driver over the quaddna library,
// exposing its ingest/query surface as banner-and-subcommand CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/sonicdna/quaddna"
	"github.com/sonicdna/quaddna/internal/telemetry"
	"github.com/sonicdna/quaddna/internal/urlref"
)

func main() {
	log := telemetry.GetLogger()
	printBanner()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	log.Infof("executing command: %s", command)

	switch command {
	case "ingest":
		handleIngest()
	case "ingest-url":
		handleIngestURL()
	case "query":
		handleQuery()
	case "list":
		handleList()
	case "delete":
		handleDelete()
	default:
		fmt.Printf("unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Println(`
  ___                  _ ____  _   _    _
 / _ \ _   _  __ _  __| |  _ \| \ | |  / \
| | | | | | |/ _` + "`" + ` |/ _` + "`" + ` | | | |  \| | / _ \
| |_| | |_| | (_| | (_| | |_| | |\  |/ ___ \
 \__\_\\__,_|\__,_|\__,_|____/|_| \_/_/   \_\

         quad-fingerprint engine CLI`)
}

func printUsage() {
	fmt.Println(`Usage:
  fingerprintcli ingest <wav_file> --title <title>
  fingerprintcli ingest-url <url> --title <title>
  fingerprintcli query <wav_file>
  fingerprintcli list
  fingerprintcli delete <audio_id>`)
}

func newService() *quaddna.Service {
	svc, err := quaddna.New()
	if err != nil {
		fmt.Printf("failed to open service: %v\n", err)
		os.Exit(1)
	}
	return svc
}

func handleIngest() {
	args := os.Args[2:]
	if len(args) == 0 {
		fmt.Println("usage: fingerprintcli ingest <wav_file> --title <title>")
		os.Exit(1)
	}
	wavPath := args[0]

	cmd := flag.NewFlagSet("ingest", flag.ExitOnError)
	title := cmd.String("title", "", "audio title (required)")
	cmd.Parse(args[1:])

	if *title == "" {
		fmt.Println("error: --title is required")
		os.Exit(1)
	}

	svc := newService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	if err := svc.IngestFile(ctx, wavPath, *title); err != nil {
		fmt.Printf("ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("ingested %q in %s\n", *title, time.Since(start))
}

// handleIngestURL downloads a reference track via yt-dlp's managed binary
// and ingests the downloaded audio.
func handleIngestURL() {
	args := os.Args[2:]
	if len(args) == 0 {
		fmt.Println("usage: fingerprintcli ingest-url <url> --title <title>")
		os.Exit(1)
	}
	url := args[0]
	if !urlref.IsSupported(url) {
		fmt.Printf("error: %q does not look like a fetchable video URL\n", url)
		os.Exit(1)
	}

	cmd := flag.NewFlagSet("ingest-url", flag.ExitOnError)
	title := cmd.String("title", "", "audio title (required)")
	cmd.Parse(args[1:])

	if *title == "" {
		fmt.Println("error: --title is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "fingerprintcli-dl-*")
	if err != nil {
		fmt.Printf("creating temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	ytdlp.MustInstall(ctx, nil)

	outputTemplate := filepath.Join(tmpDir, "%(id)s.%(ext)s")
	dl := ytdlp.New().
		NoPlaylist().
		ExtractAudio().
		AudioFormat("wav").
		Output(outputTemplate)

	result, err := dl.Run(ctx, url)
	if err != nil {
		fmt.Printf("yt-dlp download failed: %v\n", err)
		os.Exit(1)
	}

	matches, _ := filepath.Glob(filepath.Join(tmpDir, "*.wav"))
	if len(matches) == 0 {
		fmt.Printf("no wav file produced by yt-dlp (stdout: %s)\n", result.Stdout)
		os.Exit(1)
	}

	svc := newService()
	defer svc.Close()

	if err := svc.IngestFile(ctx, matches[0], *title); err != nil {
		fmt.Printf("ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("ingested %q from %s\n", *title, url)
}

func handleQuery() {
	if len(os.Args) < 3 {
		fmt.Println("usage: fingerprintcli query <wav_file>")
		os.Exit(1)
	}
	wavPath := os.Args[2]

	svc := newService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := svc.QueryFile(ctx, wavPath)
	if err != nil {
		fmt.Printf("query failed: %v\n", err)
		os.Exit(1)
	}

	if result.Title == quaddna.NoMatch {
		fmt.Println("No Match")
		return
	}

	fmt.Printf("%s\n  matches: %d | offset: %d frames | vScore: %.3f\n",
		result.Title, result.NMatches, result.OffsetFrames, result.VScore)
}

func handleList() {
	svc := newService()
	defer svc.Close()

	audios, err := svc.ListAudios()
	if err != nil {
		fmt.Printf("list failed: %v\n", err)
		os.Exit(1)
	}

	if len(audios) == 0 {
		fmt.Println("no audio records in database")
		return
	}

	for _, a := range audios {
		fmt.Printf("%d. %s\n", a.ID, a.Title)
	}
}

func handleDelete() {
	if len(os.Args) < 3 {
		fmt.Println("usage: fingerprintcli delete <audio_id>")
		os.Exit(1)
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil {
		fmt.Printf("invalid audio id: %v\n", err)
		os.Exit(1)
	}

	svc := newService()
	defer svc.Close()

	if err := svc.DeleteAudio(uint(id)); err != nil {
		fmt.Printf("delete failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("deleted audio %d\n", id)
}
