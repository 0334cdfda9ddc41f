package maps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfrobertson/LensIt/sim/cmbs"
	"github.com/mfrobertson/LensIt/sim/geom"
	"github.com/mfrobertson/LensIt/sim/internal/testutil"
	"github.com/mfrobertson/LensIt/sim/lensing"
	"github.com/mfrobertson/LensIt/sim/phases"
	"github.com/mfrobertson/LensIt/sim/spectra"
	"github.com/mfrobertson/LensIt/sim/store"
	"github.com/mfrobertson/LensIt/sim/transform"
)

type testKey []string

func (k testKey) Segments() []string { return k }

func testCls(lmax int) *spectra.Cls {
	c := &spectra.Cls{
		TT: make([]float64, lmax+1),
		EE: make([]float64, lmax+1),
		TE: make([]float64, lmax+1),
		PP: make([]float64, lmax+1),
	}
	for ell := 1; ell <= lmax; ell++ {
		l := float64(ell)
		c.TT[ell] = 1000 / (l * (l + 1))
		c.EE[ell] = 10 / (l * (l + 1))
		c.TE[ell] = 30 / (l * (l + 1))
		c.PP[ell] = 1e-4 / (l * l * (l + 1) * (l + 1))
	}
	return c
}

// newFixture wires a sky library on a 2^6 grid and a data library on the
// matching 2^4 grid, the same patch observed at two samplings.
func newFixture(t *testing.T, st *store.Store, noise NoiseLevels, cacheMaps bool) *Library {
	t.Helper()
	skyMat, err := geom.NewEllMat(6, 6)
	require.NoError(t, err)
	dataMat, err := geom.NewEllMat(4, 6)
	require.NoError(t, err)

	skyProj := geom.NewProjection(skyMat, geom.EllCap(dataMat.EllMax()))
	dataProj := geom.NewProjection(dataMat, geom.EllCap(dataMat.EllMax()))
	cls := testCls(dataMat.EllMax())

	pha, err := phases.NewAlmCache(st, testKey{"2_sims", "skypha"}, len(cls.Fields()), skyProj, 2)
	require.NoError(t, err)
	sky, err := cmbs.New(st, testKey{"2_sims", "len_alms"},
		transform.NewFFT(skyProj, 1), lensing.Bilinear{}, cls, pha, false)
	require.NoError(t, err)

	pixPha, err := phases.NewPixCache(st, testKey{"2_sims", "res4", "pixpha"}, NoiseChannels, dataMat, 2)
	require.NoError(t, err)

	transf := spectra.GaussBeam(0.002, dataMat.EllMax())
	lib, err := New(st, testKey{"2_sims", "res4", "maps"},
		transform.NewFFT(dataProj, 1), sky, transf, noise, pixPha, cacheMaps)
	require.NoError(t, err)
	return lib
}

func TestLibrary_Deterministic(t *testing.T) {
	noise := NoiseLevels{T: 1.5, Q: 2.1, U: 2.1}
	a := newFixture(t, store.InMemory(), noise, false)
	b := newFixture(t, store.InMemory(), noise, false)

	ma, err := a.GetSim(0)
	require.NoError(t, err)
	mb, err := b.GetSim(0)
	require.NoError(t, err)

	testutil.AssertMapsClose(t, "T", ma.T, mb.T, 0)
	testutil.AssertMapsClose(t, "Q", ma.Q, mb.Q, 0)
	testutil.AssertMapsClose(t, "U", ma.U, mb.U, 0)
	assert.Len(t, ma.T, a.Proj().Mat.Npix())
}

func TestLibrary_CachedMatchesRecomputed(t *testing.T) {
	noise := NoiseLevels{T: 1, Q: 1.4, U: 1.4}
	st := store.InMemory()
	cached := newFixture(t, st, noise, true)

	m1, err := cached.GetSim(1)
	require.NoError(t, err)
	ok, err := st.Exists(cached.Key(), "sim_0001")
	require.NoError(t, err)
	assert.True(t, ok)

	m2, err := cached.GetSim(1)
	require.NoError(t, err)
	testutil.AssertMapsClose(t, "T", m1.T, m2.T, 0)
	testutil.AssertMapsClose(t, "Q", m1.Q, m2.Q, 0)

	fresh := newFixture(t, store.InMemory(), noise, false)
	m3, err := fresh.GetSim(1)
	require.NoError(t, err)
	testutil.AssertMapsClose(t, "T fresh", m1.T, m3.T, 0)
}

func TestLibrary_NoiseScalesWithLevel(t *testing.T) {
	// With a shared store the sky and pixel phases are identical across the
	// two libraries, so map differences isolate the noise term.
	st := store.InMemory()
	quiet := newFixture(t, st, NoiseLevels{}, false)
	loud := newFixture(t, st, NoiseLevels{T: 2, Q: 0, U: 0}, false)

	mq, err := quiet.GetSim(0)
	require.NoError(t, err)
	ml, err := loud.GetSim(0)
	require.NoError(t, err)

	pix, err := loud.pixPha.Get(0)
	require.NoError(t, err)
	for i := range mq.T {
		assert.InDelta(t, mq.T[i]+2*pix[0][i], ml.T[i], 1e-12)
	}
	// Q noise level is zero in both, so Q agrees exactly.
	testutil.AssertMapsClose(t, "Q", mq.Q, ml.Q, 0)
}

func TestLibrary_IndexOutOfRange(t *testing.T) {
	lib := newFixture(t, store.InMemory(), NoiseLevels{}, false)
	_, err := lib.GetSim(2)
	require.Error(t, err)
	assert.Equal(t, phases.IndexError{Index: 2, Count: 2}, err)
}

func TestNew_Validation(t *testing.T) {
	st := store.InMemory()
	skyMat, err := geom.NewEllMat(6, 6)
	require.NoError(t, err)
	dataMat, err := geom.NewEllMat(4, 6)
	require.NoError(t, err)
	skyProj := geom.NewProjection(skyMat, geom.EllCap(dataMat.EllMax()))
	dataProj := geom.NewProjection(dataMat, geom.EllCap(dataMat.EllMax()))
	cls := testCls(dataMat.EllMax())

	pha, err := phases.NewAlmCache(st, testKey{"skypha"}, len(cls.Fields()), skyProj, 2)
	require.NoError(t, err)
	sky, err := cmbs.New(st, testKey{"len_alms"},
		transform.NewFFT(skyProj, 1), lensing.Bilinear{}, cls, pha, false)
	require.NoError(t, err)
	transf := spectra.GaussBeam(0.002, dataMat.EllMax())

	// Wrong channel count.
	badPha, err := phases.NewPixCache(st, testKey{"pixpha2"}, 2, dataMat, 2)
	require.NoError(t, err)
	_, err = New(st, testKey{"maps"}, transform.NewFFT(dataProj, 1), sky, transf, NoiseLevels{}, badPha, false)
	assert.Error(t, err)

	// Pixel phases on the wrong grid.
	wrongGrid, err := phases.NewPixCache(st, testKey{"pixpha3"}, NoiseChannels, skyMat, 2)
	require.NoError(t, err)
	_, err = New(st, testKey{"maps"}, transform.NewFFT(dataProj, 1), sky, transf, NoiseLevels{}, wrongGrid, false)
	assert.Error(t, err)

	// Simulation count mismatch.
	shortPha, err := phases.NewPixCache(st, testKey{"pixpha4"}, NoiseChannels, dataMat, 1)
	require.NoError(t, err)
	_, err = New(st, testKey{"maps"}, transform.NewFFT(dataProj, 1), sky, transf, NoiseLevels{}, shortPha, false)
	assert.Error(t, err)
}
