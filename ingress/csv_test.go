package ingress

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FerroO2000/barrace/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvTestFile = "id,name,type,date,value,gdp,channel\n" +
	"cn,China,Asia,2020-01-01,10,14.7,\"a, b\"\n" +
	"us,USA,,2020-01-01,abc,20.9,x\r\n" +
	"\n" +
	"cn,China,Asia,not-a-date,11,,x\n" +
	"us,USA,,2020-02-01,30,21.4,\"say \"\"hi\"\"\""

func newTestCSVConfig() *CSVConfig {
	cfg := NewCSVConfig()
	cfg.Location = time.UTC
	return cfg
}

func Test_csvDecoder(t *testing.T) {
	assert := assert.New(t)

	rows, err := newCSVDecoder(',').decode([]byte("\xEF\xBB\xBFa,b\n\n1,\"x,\ny\"\n2,3"))
	assert.NoError(err)
	assert.Equal([][]string{{"a", "b"}, {"1", "x,\ny"}, {"2", "3"}}, rows)

	rows, err = newCSVDecoder(';').decode([]byte("a;b\n1;2\n"))
	assert.NoError(err)
	assert.Equal([][]string{{"a", "b"}, {"1", "2"}}, rows)

	_, err = newCSVDecoder(',').decode([]byte("a,\"b\n"))
	assert.Error(err)
}

func Test_CSVReaderSource(t *testing.T) {
	assert := assert.New(t)

	src := NewCSVReaderSource(strings.NewReader(csvTestFile), newTestCSVConfig())
	assert.Equal("csv_reader", src.Name())

	samples, err := src.Load(t.Context())
	require.NoError(t, err)

	// The row with the invalid date is dropped
	assert.Len(samples, 3)

	cn := samples[0]
	assert.Equal("cn", cn.ID)
	assert.Equal("China", cn.Name)
	assert.Equal("Asia", cn.Type)
	assert.True(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Equal(cn.Time))
	assert.Equal(10.0, cn.Value)
	assert.Equal(14.7, cn.Fields["gdp"])
	assert.Equal("a, b", cn.Meta["channel"])
	_, ok := cn.Fields["channel"]
	assert.False(ok)

	us := samples[1]
	assert.Equal("", us.Type)
	assert.True(math.IsNaN(us.Value))
	assert.Equal("x", us.Meta["channel"])

	assert.Equal(`say "hi"`, samples[2].Meta["channel"])
	assert.Equal(30.0, samples[2].Value)
}

func Test_CSVReaderSource_missingColumn(t *testing.T) {
	assert := assert.New(t)

	_, err := NewCSVReaderSource(strings.NewReader("id,date\nA,2020\n"), newTestCSVConfig()).Load(t.Context())
	assert.ErrorIs(err, ErrMissingColumn)

	_, err = NewCSVReaderSource(strings.NewReader(""), newTestCSVConfig()).Load(t.Context())
	assert.ErrorIs(err, ErrMissingColumn)
}

func Test_CSVReaderSource_customFields(t *testing.T) {
	assert := assert.New(t)

	cfg := newTestCSVConfig()
	cfg.IDField = "country"
	cfg.DateField = "year"

	data := "country,year,value\nIT,1990,5\nIT,1991,6\n"
	samples, err := NewCSVReaderSource(strings.NewReader(data), cfg).Load(t.Context())
	require.NoError(t, err)

	assert.Len(samples, 2)
	assert.Equal("IT", samples[1].ID)
	assert.Equal(1991, samples[1].Time.Year())
}

func Test_CSVFileSource(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvTestFile), 0o644))

	src := NewCSVFileSource(path, newTestCSVConfig())
	assert.Equal(path, src.Path())

	samples, err := src.Load(t.Context())
	assert.NoError(err)
	assert.Len(samples, 3)

	_, err = NewCSVFileSource(filepath.Join(t.TempDir(), "missing.csv"), newTestCSVConfig()).Load(t.Context())
	assert.Error(err)
}

func Test_CSVConfig_Validate(t *testing.T) {
	assert := assert.New(t)

	cfg := &CSVConfig{}
	ac := config.NewAnomalyCollector()
	cfg.Validate(ac)

	assert.Equal(DefaultCSVConfigIDField, cfg.IDField)
	assert.Equal(DefaultCSVConfigDateField, cfg.DateField)
	assert.Equal(DefaultCSVConfigValueField, cfg.ValueField)
	assert.Equal(byte(DefaultCSVConfigComma), cfg.Comma)
	assert.NotNil(cfg.Location)
	assert.Equal(5, ac.Len())
}

func Test_LoadMetadata(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "meta.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,image,color\ncn,cn.png,#f00\nus,us.png,\n"), 0o644))

	md, err := LoadMetadata(t.Context(), path, "id")
	require.NoError(t, err)

	assert.Len(md, 2)
	assert.Equal("cn.png", md.Get("cn", "image"))
	assert.Equal("#f00", md.Get("cn", "color"))
	assert.Equal("", md.Get("us", "color"))
	assert.Equal("", md.Get("fr", "image"))

	_, err = LoadMetadata(t.Context(), path, "code")
	assert.ErrorIs(err, ErrMissingColumn)
}
