package api

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesentry/wavesentry/pkg/logger"
	"github.com/wavesentry/wavesentry/pkg/registry"
	"github.com/wavesentry/wavesentry/pkg/tracker"
)

type fixture struct {
	reg    *tracker.Registry
	schema *registry.BaseSchema
	store  *registry.Store
	h      *Handler
}

func newFixture(t *testing.T, options ...func(*Handler)) *fixture {
	t.Helper()

	reg := tracker.NewRegistry()
	schema := registry.NewBaseSchema(reg)
	store := registry.NewStore(logger.NewTestLogger())

	options = append([]func(*Handler){
		WithClock(func() time.Time { return time.Unix(180, 0) }),
	}, options...)

	return &fixture{
		reg:    reg,
		schema: schema,
		store:  store,
		h:      NewHandler(store, schema, options...),
	}
}

func (f *fixture) addDevice(t *testing.T, phy uint32, mac, name string, lastTime int64) *registry.Device {
	t.Helper()

	addr, err := tracker.ParseMAC(mac)
	require.NoError(t, err)

	d, err := registry.NewDevice(f.schema, tracker.NewDeviceKey(phy, addr), "IEEE802.11")
	require.NoError(t, err)
	require.NoError(t, d.SetName(name))
	require.NoError(t, d.SetLastTime(lastTime))
	require.NoError(t, f.store.Insert(d))

	return d
}

func jsonForm(body string, extra url.Values) url.Values {
	form := url.Values{"json": {body}}
	for k, v := range extra {
		form[k] = v
	}

	return form
}

func TestGetByKeyFullRecord(t *testing.T) {
	f := newFixture(t)
	d := f.addDevice(t, 0, "aa:bb:cc:dd:ee:ff", "lamp", 100)

	path := "/devices/by-key/" + d.Key().String() + "/device.json"
	require.True(t, f.h.VerifyRequest("GET", path))

	var buf bytes.Buffer
	require.NoError(t, f.h.ServeGet(path, &buf))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, d.Key().String(), out["wavesentry.device.base.key"])
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", out["wavesentry.device.base.macaddr"])
	assert.Equal(t, "lamp", out["wavesentry.device.base.name"])
}

func TestGetByKeyNestedField(t *testing.T) {
	f := newFixture(t)
	d := f.addDevice(t, 0, "aa:bb:cc:dd:ee:ff", "lamp", 100)

	path := "/devices/by-key/" + d.Key().String() +
		"/device.json/wavesentry.device.base.signal/wavesentry.device.base.signal.last_signal_dbm"
	require.True(t, f.h.VerifyRequest("GET", path))

	var buf bytes.Buffer
	require.NoError(t, f.h.ServeGet(path, &buf))
	assert.JSONEq(t, "0", buf.String())
}

func TestVerifyRejectsUnknownSuffix(t *testing.T) {
	f := newFixture(t)
	d := f.addDevice(t, 0, "aa:bb:cc:dd:ee:ff", "lamp", 100)

	assert.False(t, f.h.VerifyRequest("GET", "/devices/by-key/"+d.Key().String()+"/device.xml"))
	assert.False(t, f.h.VerifyRequest("POST", "/devices/summary/devices.xml"))
}

func TestVerifyUnknownFieldTakesNoRecordLocks(t *testing.T) {
	f := newFixture(t)
	d := f.addDevice(t, 0, "aa:bb:cc:dd:ee:ff", "lamp", 100)

	baseline := d.LockAcquisitions()

	path := "/devices/by-key/" + d.Key().String() + "/device.json/no.such.field"
	assert.False(t, f.h.VerifyRequest("GET", path))
	assert.Equal(t, baseline, d.LockAcquisitions())
}

func TestRejectedSummaryTakesNoRecordLocks(t *testing.T) {
	f := newFixture(t)
	d := f.addDevice(t, 0, "aa:bb:cc:dd:ee:ff", "lamp", 100)

	baseline := d.LockAcquisitions()

	var buf bytes.Buffer
	err := f.h.ServePost("/devices/summary/devices.json",
		jsonForm(`{"fields": ["no.such.field"]}`, nil), "", &buf)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Equal(t, baseline, d.LockAcquisitions())
}

func TestTargetVanishingBetweenPhases(t *testing.T) {
	f := newFixture(t)
	d := f.addDevice(t, 0, "aa:bb:cc:dd:ee:ff", "lamp", 100)

	path := "/devices/by-key/" + d.Key().String() + "/device.json"
	require.True(t, f.h.VerifyRequest("GET", path))

	f.store.Remove(d.Key())

	var buf bytes.Buffer
	err := f.h.ServeGet(path, &buf)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid request", apiErr.Message)
}

func TestGetByMACReturnsAllHolders(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "k1", 100)
	f.addDevice(t, 1, "aa:aa:aa:aa:aa:aa", "k2", 200)

	path := "/devices/by-mac/aa:aa:aa:aa:aa:aa/devices.json"
	require.True(t, f.h.VerifyRequest("GET", path))

	var buf bytes.Buffer
	require.NoError(t, f.h.ServeGet(path, &buf))

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out, 2)
}

func TestGetLastTimeRelativeCutoff(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "k1", 100)
	f.addDevice(t, 1, "aa:aa:aa:aa:aa:aa", "k2", 200)

	// Clock is pinned to 180; -50 resolves to a cutoff of 130.
	path := "/devices/last-time/-50/devices.json"
	require.True(t, f.h.VerifyRequest("GET", path))

	var buf bytes.Buffer
	require.NoError(t, f.h.ServeGet(path, &buf))

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "k2", out[0]["wavesentry.device.base.name"])
}

func TestSummaryDatatableSortedPage(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "k1", 100)
	f.addDevice(t, 1, "aa:aa:aa:aa:aa:aa", "k2", 200)

	form := jsonForm(
		`{"fields": [["wavesentry.device.base.last_time", "ts"]], "datatable": true}`,
		url.Values{
			"draw":             {"3"},
			"start":            {"0"},
			"length":           {"50"},
			"order[0][column]": {"0"},
		})

	require.True(t, f.h.VerifyRequest("POST", "/devices/summary/devices.json"))

	var buf bytes.Buffer
	require.NoError(t, f.h.ServePost("/devices/summary/devices.json", form, "", &buf))

	assert.JSONEq(t,
		`{"draw": 3, "recordsTotal": 2, "recordsFiltered": 2, "data": [{"ts": 200}, {"ts": 100}]}`,
		buf.String())
}

func TestSummaryDatatableAscending(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "k1", 100)
	f.addDevice(t, 1, "aa:aa:aa:aa:aa:aa", "k2", 200)

	form := jsonForm(
		`{"fields": [["wavesentry.device.base.last_time", "ts"]], "datatable": true}`,
		url.Values{
			"order[0][column]": {"0"},
			"order[0][dir]":    {"asc"},
		})

	var buf bytes.Buffer
	require.NoError(t, f.h.ServePost("/devices/summary/devices.json", form, "", &buf))

	assert.JSONEq(t,
		`{"draw": 0, "recordsTotal": 2, "recordsFiltered": 2, "data": [{"ts": 100}, {"ts": 200}]}`,
		buf.String())
}

func TestSummaryOutOfRangeSortColumnKeepsScanOrder(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "k1", 100)
	f.addDevice(t, 1, "aa:aa:aa:aa:aa:aa", "k2", 200)

	form := jsonForm(
		`{"fields": [["wavesentry.device.base.last_time", "ts"]], "datatable": true}`,
		url.Values{"order[0][column]": {"5"}})

	var buf bytes.Buffer
	require.NoError(t, f.h.ServePost("/devices/summary/devices.json", form, "", &buf))

	assert.JSONEq(t,
		`{"draw": 0, "recordsTotal": 2, "recordsFiltered": 2, "data": [{"ts": 100}, {"ts": 200}]}`,
		buf.String())
}

func TestSummaryDatatableSearch(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "lamp", 100)
	f.addDevice(t, 1, "bb:bb:bb:bb:bb:bb", "camera", 200)

	form := jsonForm(
		`{"fields": [["wavesentry.device.base.name", "name"]], "datatable": true}`,
		url.Values{
			"search[value]":          {"CAM"},
			"columns[0][searchable]": {"true"},
		})

	var buf bytes.Buffer
	require.NoError(t, f.h.ServePost("/devices/summary/devices.json", form, "", &buf))

	assert.JSONEq(t,
		`{"draw": 0, "recordsTotal": 2, "recordsFiltered": 1, "data": [{"name": "camera"}]}`,
		buf.String())
}

func TestSummarySearchWithoutSearchableColumnsMatchesNothing(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "lamp", 100)

	form := jsonForm(
		`{"fields": [["wavesentry.device.base.name", "name"]], "datatable": true}`,
		url.Values{
			"search[value]":          {"lamp"},
			"columns[0][searchable]": {"false"},
		})

	var buf bytes.Buffer
	require.NoError(t, f.h.ServePost("/devices/summary/devices.json", form, "", &buf))

	assert.JSONEq(t,
		`{"draw": 0, "recordsTotal": 1, "recordsFiltered": 0, "data": []}`,
		buf.String())
}

func TestSummaryRegexFilter(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "lamp-1", 100)
	f.addDevice(t, 1, "bb:bb:bb:bb:bb:bb", "camera-1", 200)

	form := jsonForm(`{
		"fields": [["wavesentry.device.base.name", "name"]],
		"regex": [["wavesentry.device.base.name", "^lamp"]]
	}`, nil)

	var buf bytes.Buffer
	require.NoError(t, f.h.ServePost("/devices/summary/devices.json", form, "", &buf))

	assert.JSONEq(t, `[{"name": "lamp-1"}]`, buf.String())
}

func TestSummaryRejectsNonArrayRegex(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "lamp-1", 100)

	form := jsonForm(`{
		"fields": [["wavesentry.device.base.name", "name"]],
		"regex": "lamp"
	}`, nil)

	var buf bytes.Buffer
	err := f.h.ServePost("/devices/summary/devices.json", form, "", &buf)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Contains(t, apiErr.Message, "regex")
	assert.Empty(t, buf.String())
}

func TestPostLastTimeRejectsNonArrayRegex(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "lamp-new", 200)

	form := jsonForm(`{
		"fields": [["wavesentry.device.base.name", "name"]],
		"regex": {"field": "name"}
	}`, nil)

	var buf bytes.Buffer
	err := f.h.ServePost("/devices/last-time/-50/devices.json", form, "", &buf)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Empty(t, buf.String())
}

func TestSummaryWrapperKey(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "lamp", 100)

	form := jsonForm(
		`{"fields": [["wavesentry.device.base.name", "name"]], "wrapper": "devices"}`, nil)

	var buf bytes.Buffer
	require.NoError(t, f.h.ServePost("/devices/summary/devices.json", form, "", &buf))

	assert.JSONEq(t, `{"devices": [{"name": "lamp"}]}`, buf.String())
}

func TestSummaryMissingBodyIsRequestError(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	err := f.h.ServePost("/devices/summary/devices.json", url.Values{}, "", &buf)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
}

func TestPostLastTimeWithRegexChain(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "lamp-old", 100)
	f.addDevice(t, 1, "bb:bb:bb:bb:bb:bb", "lamp-new", 200)
	f.addDevice(t, 2, "cc:cc:cc:cc:cc:cc", "camera-new", 200)

	form := jsonForm(`{
		"fields": [["wavesentry.device.base.name", "name"]],
		"regex": [["wavesentry.device.base.name", "^lamp"]]
	}`, nil)

	path := "/devices/last-time/-50/devices.json"
	require.True(t, f.h.VerifyRequest("POST", path))

	var buf bytes.Buffer
	require.NoError(t, f.h.ServePost(path, form, "", &buf))

	assert.JSONEq(t, `[{"name": "lamp-new"}]`, buf.String())
}

func TestPostByKeySummary(t *testing.T) {
	f := newFixture(t)
	d := f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "lamp", 100)

	form := jsonForm(`{"fields": [["wavesentry.device.base.name", "name"]]}`, nil)
	path := "/devices/by-key/" + d.Key().String() + "/device.json"

	var buf bytes.Buffer
	require.NoError(t, f.h.ServePost(path, form, "", &buf))

	assert.JSONEq(t, `{"name": "lamp"}`, buf.String())
}

func TestSetNameSilentlyInertWithoutSession(t *testing.T) {
	f := newFixture(t)
	d := f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "lamp", 100)

	form := jsonForm(`{"name": "renamed"}`, nil)
	path := "/devices/by-key/" + d.Key().String() + "/set_name.json"
	require.True(t, f.h.VerifyRequest("POST", path))

	var buf bytes.Buffer
	require.NoError(t, f.h.ServePost(path, form, "", &buf))

	assert.Empty(t, buf.String())
	assert.Equal(t, "lamp", d.Name())
}

func TestSetNameWithValidSession(t *testing.T) {
	f := newFixture(t, WithSessionValidator(allowSessions{}))
	d := f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "lamp", 100)

	form := jsonForm(`{"name": "renamed"}`, nil)
	path := "/devices/by-key/" + d.Key().String() + "/set_name.json"

	var buf bytes.Buffer
	require.NoError(t, f.h.ServePost(path, form, "token", &buf))

	assert.Equal(t, "OK", buf.String())
	assert.Equal(t, "renamed", d.Name())
}

func TestExportAllDevicesOneRecordPerLine(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, 0, "aa:aa:aa:aa:aa:aa", "k1", 100)
	f.addDevice(t, 1, "bb:bb:bb:bb:bb:bb", "k2", 200)

	path := "/devices/all_devices.ekjson"
	require.True(t, f.h.VerifyRequest("GET", path))

	var buf bytes.Buffer
	require.NoError(t, f.h.ServeGet(path, &buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	for _, line := range lines {
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Contains(t, rec, "wavesentry.device.base.key")
	}
}

func TestPhysEnumeration(t *testing.T) {
	f := newFixture(t)

	p := f.store.RegisterPhy("IEEE802.11")
	p.AddPackets(42)

	require.True(t, f.h.VerifyRequest("GET", "/phy/all_phys.json"))

	var buf bytes.Buffer
	require.NoError(t, f.h.ServeGet("/phy/all_phys.json", &buf))

	assert.JSONEq(t, `[
		{"wavesentry.phy.id": -1, "wavesentry.phy.name": "ANY", "wavesentry.phy.packets": 0},
		{"wavesentry.phy.id": 0, "wavesentry.phy.name": "IEEE802.11", "wavesentry.phy.packets": 42}
	]`, buf.String())
}

func TestPhysDatatableAlias(t *testing.T) {
	f := newFixture(t)
	f.store.RegisterPhy("IEEE802.11")

	var buf bytes.Buffer
	require.NoError(t, f.h.ServeGet("/phy/all_phys_dt.json", &buf))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	aa, ok := out["aaData"].([]interface{})
	require.True(t, ok)
	assert.Len(t, aa, 2)
}
