package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FerroO2000/barrace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func Test_loadConfig_defaults(t *testing.T) {
	assert := assert.New(t)

	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(barrace.DefaultConfigFrameRate, cfg.FrameRate)
	assert.Equal(barrace.DefaultConfigItemCount, cfg.ItemCount)
	assert.Equal("id", cfg.Data.IDField)
	assert.Equal(",", cfg.Data.Comma)
	assert.Equal("bar_frames", cfg.Sinks.Kafka.Topic)
}

func Test_loadConfig(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("BARRACE_TEST_TOPIC", "race")

	path := writeConfig(t, `
frame_rate: 60
interval: 0.5
item_count: 10
sort: -1
key_frame_delta: 24h
images:
  IT: ./flags/it.png
data:
  id_field: country
  timezone: UTC
  comma: ";"
render:
  width: 1920
  height: 1080
  language: en
sinks:
  kafka:
    brokers: ["localhost:9092"]
    topic: ${BARRACE_TEST_TOPIC}
watch:
  debounce: 1s
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(60, cfg.FrameRate)
	assert.Equal(0.5, cfg.Interval)
	assert.Equal(-1, cfg.Sort)
	assert.Equal(24*time.Hour, cfg.KeyFrameDelta)
	assert.Equal("./flags/it.png", cfg.Images["IT"])
	assert.Equal("race", cfg.Sinks.Kafka.Topic)
	assert.Equal(time.Second, cfg.Watch.Debounce)

	// Unset keys keep their defaults
	assert.Equal("date", cfg.Data.DateField)
	assert.Equal(barrace.DefaultConfigTickNumber, cfg.TickNumber)

	pipelineCfg, err := cfg.pipelineConfig()
	require.NoError(t, err)

	assert.Equal(60, pipelineCfg.FrameRate)
	assert.Equal("country", pipelineCfg.CSV.IDField)
	assert.Equal(byte(';'), pipelineCfg.CSV.Comma)
	assert.Equal(time.UTC, pipelineCfg.CSV.Location)
	assert.Equal(1920.0, pipelineCfg.Render.Width)
	assert.Equal("en", pipelineCfg.Render.Language)
}

func Test_loadConfig_invalid(t *testing.T) {
	assert := assert.New(t)

	_, err := loadConfig(writeConfig(t, "sort: 2\n"))
	assert.Error(err)

	_, err = loadConfig(writeConfig(t, "interval: -1\n"))
	assert.Error(err)

	_, err = loadConfig(writeConfig(t, "data:\n  comma: \";;\"\n"))
	assert.Error(err)

	_, err = loadConfig(writeConfig(t, "frame_rate: [\n"))
	assert.Error(err)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(err)

	cfg, err := loadConfig(writeConfig(t, "data:\n  timezone: Mars/Olympus\n"))
	require.NoError(t, err)
	_, err = cfg.pipelineConfig()
	assert.Error(err)
}

func Test_app_runOnce(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()

	dataPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(
		"id,date,value\n"+
			"A,2020-01-01,10\n"+
			"A,2020-02-01,20\n"+
			"B,2020-01-01,5\n"+
			"B,2020-02-01,30\n",
	), 0o644))

	fileCfg, err := loadConfig(writeConfig(t, "frame_rate: 2\ndata:\n  timezone: UTC\nrender:\n  width: 64\n  height: 48\n"))
	require.NoError(t, err)

	outPath := filepath.Join(dir, "frames.csv")
	framesDir := filepath.Join(dir, "png")

	a, err := newApp(fileCfg, &appOptions{
		dataPath:  dataPath,
		outPath:   outPath,
		framesDir: framesDir,
	})
	require.NoError(t, err)

	require.NoError(t, a.runOnce(t.Context()))

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(string(out), "frame,time,id,name,type,state,value,alpha,rank,pos\n")

	// 2 animation frames and 2 hold frames
	pngs, err := filepath.Glob(filepath.Join(framesDir, "*.png"))
	require.NoError(t, err)
	assert.Len(pngs, 4)
}
