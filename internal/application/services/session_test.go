package services

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/reglet-dev/xrrlab/internal/application/errors"
	"github.com/reglet-dev/xrrlab/internal/application/dto"
	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	domainsvc "github.com/reglet-dev/xrrlab/internal/domain/services"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// MockWorkspaceRepository is a mock implementation of repositories.WorkspaceRepository
type MockWorkspaceRepository struct {
	mock.Mock
}

func (m *MockWorkspaceRepository) Load(ctx context.Context) (*entities.Workspace, error) {
	args := m.Called(ctx)
	ws, _ := args.Get(0).(*entities.Workspace)
	return ws, args.Error(1)
}

func (m *MockWorkspaceRepository) Save(ctx context.Context, ws *entities.Workspace) error {
	return m.Called(ctx, ws).Error(0)
}

func (m *MockWorkspaceRepository) Exists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type mapCache map[string]*entities.DensityProfile

func (c mapCache) Get(key string) (*entities.DensityProfile, bool) {
	p, ok := c[key]
	return p, ok
}

func (c mapCache) Add(key string, p *entities.DensityProfile) { c[key] = p }

func newTestSession(t *testing.T, deps SessionDeps) *Session {
	t.Helper()
	s, err := NewSession(entities.NewWorkspace("test"), deps)
	require.NoError(t, err)
	return s
}

const twoThetaScan = `# 2theta intensity
0.5 1.0
1.0 0.5
bad row
1.5 0.01

2.0 0.001
`

func TestSession_DefaultStack(t *testing.T) {
	s := newTestSession(t, SessionDeps{})

	view := s.StackView()
	require.Len(t, view.Layers, 2)
	assert.Equal(t, "SiO2", view.Layers[0].Material)
	assert.Equal(t, "Si Substrate", view.Layers[1].Material)
	assert.Equal(t, 25.0, view.TotalThickness)
	assert.Equal(t, values.CuKAlpha1, s.Wavelength())
}

func TestSession_AddLayer(t *testing.T) {
	thickness := 12.5
	tests := []struct {
		name     string
		req      dto.AddLayerRequest
		material string
		want     float64
		wantErr  bool
	}{
		{name: "default", req: dto.AddLayerRequest{}, material: "New Material", want: 50},
		{name: "preset by formula", req: dto.AddLayerRequest{Preset: "au"}, material: "Au", want: 50},
		{name: "preset with override", req: dto.AddLayerRequest{Preset: "Gold", Thickness: &thickness}, material: "Au", want: 12.5},
		{name: "explicit", req: dto.AddLayerRequest{Material: "Pt", Thickness: &thickness}, material: "Pt", want: 12.5},
		{name: "unknown preset", req: dto.AddLayerRequest{Preset: "unobtainium"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, SessionDeps{})
			layer, err := s.AddLayer(tt.req)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, 2, s.Stack().Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.material, layer.Material)
			assert.Equal(t, tt.want, layer.Thickness)

			stack := s.Stack()
			require.Equal(t, 3, stack.Len())
			assert.Equal(t, "Si Substrate", stack.Substrate().Material, "insertions stay above the substrate")
			assert.Equal(t, 1, stack.IndexOf(layer.ID))
		})
	}
}

func TestSession_UpdateAndRemove(t *testing.T) {
	s := newTestSession(t, SessionDeps{})
	oxide := s.Stack().Layers()[0]
	substrate := s.Stack().Substrate()

	require.NoError(t, s.UpdateLayer(oxide.ID.Short(), entities.FieldThickness, "31.5"))
	assert.Equal(t, 31.5, s.Stack().Layers()[0].Thickness)
	assert.Error(t, s.UpdateLayer("zzzz", entities.FieldThickness, 1.0))

	assert.False(t, s.RemoveLayer(substrate.ID.String()))
	assert.False(t, s.RemoveLayer("zzzz"))
	assert.True(t, s.RemoveLayer(oxide.ID.String()))
	assert.Equal(t, 1, s.Stack().Len())
}

func TestSession_ReturnsCopies(t *testing.T) {
	s := newTestSession(t, SessionDeps{})
	stack := s.Stack()
	stack.Insert(entities.NewDefaultLayer())
	assert.Equal(t, 2, s.Stack().Len())
}

func TestSession_Import(t *testing.T) {
	s := newTestSession(t, SessionDeps{})

	resp, err := s.Import(strings.NewReader(twoThetaScan), dto.ImportRequest{Source: "scan.txt"})
	require.NoError(t, err)
	assert.Equal(t, values.AxisQAngstrom, resp.Unit, "a maximum below 2.5 looks like q")
	assert.True(t, resp.Guessed)
	assert.Equal(t, 4, resp.Quality.Points)
	assert.Equal(t, 1, resp.Quality.Dropped)

	require.NoError(t, s.SetAxisUnit(values.AxisTwoTheta))
	m := s.Measured()
	require.NotNil(t, m)
	assert.Equal(t, []float64{0.5, 1.0, 1.5, 2.0}, m.OriginalX)
	assert.InDelta(t, 4*3.141592653589793/1.5406*0.0043633, m.X[0], 1e-5)

	before := m.X[0]
	require.NoError(t, s.SetWavelength(0.7093))
	assert.Greater(t, s.Measured().X[0], before, "a shorter wavelength gives larger q")
}

func TestSession_QualityAndAxis(t *testing.T) {
	s := newTestSession(t, SessionDeps{})
	_, ok := s.Quality()
	assert.False(t, ok, "no data imported yet")

	_, err := s.Import(strings.NewReader(twoThetaScan), dto.ImportRequest{Unit: values.AxisTwoTheta})
	require.NoError(t, err)

	quality, ok := s.Quality()
	require.True(t, ok)
	assert.Equal(t, 4, quality.Points)

	lo, err := s.ToAxis(quality.QMin)
	require.NoError(t, err)
	hi, err := s.ToAxis(quality.QMax)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, lo, 1e-9)
	assert.InDelta(t, 2.0, hi, 1e-9)
}

func TestSession_ImportErrors(t *testing.T) {
	s := newTestSession(t, SessionDeps{})

	_, err := s.Import(strings.NewReader("# nothing\nfoo bar\n"), dto.ImportRequest{})
	var parseErr *entities.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Nil(t, s.Measured(), "a failed import keeps the previous state")

	_, err = s.Import(strings.NewReader(twoThetaScan), dto.ImportRequest{Columns: entities.ColumnMap{X: 1, Y: 1}})
	var cfgErr *entities.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestSession_SetWavelengthRejectsInvalid(t *testing.T) {
	s := newTestSession(t, SessionDeps{})
	var cfgErr *entities.ConfigurationError
	require.ErrorAs(t, s.SetWavelength(0), &cfgErr)
	require.ErrorAs(t, s.SetAxisUnit("furlongs"), &cfgErr)
	assert.Equal(t, values.CuKAlpha1, s.Wavelength())
}

func TestSession_ProfileUsesCache(t *testing.T) {
	cache := mapCache{}
	s := newTestSession(t, SessionDeps{Cache: cache})

	first := s.Profile()
	second := s.Profile()
	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
	assert.Len(t, cache, 1)

	require.NoError(t, s.UpdateLayer(s.Stack().Layers()[0].ID.String(), entities.FieldDensity, 2.5))
	third := s.Profile()
	assert.NotEqual(t, first.Rho, third.Rho)
	assert.Len(t, cache, 2)
}

func TestSession_ProfileIsNotShared(t *testing.T) {
	cache := mapCache{}
	s := newTestSession(t, SessionDeps{Cache: cache})

	first := s.Profile()
	want := first.Rho[len(first.Rho)-1]
	first.Rho[len(first.Rho)-1] = -1
	first.Layers[0].Rho[0] = -1

	second := s.Profile()
	assert.Equal(t, want, second.Rho[len(second.Rho)-1])
	assert.NotEqual(t, -1.0, second.Layers[0].Rho[0])
}

func TestSession_ProfileWithExtremeLayers(t *testing.T) {
	ws := entities.NewWorkspace("extreme")
	layers := ws.Stack.Layers()
	layers[0].Thickness = math.NaN()
	layers[0].Roughness = math.Inf(1)
	stack, err := entities.NewLayerStackFromLayers(append([]entities.MaterialLayer{
		entities.NewMaterialLayer("Thick", 1e300, 2.0, 3.0),
	}, layers...))
	require.NoError(t, err)
	ws.Stack = stack

	s, err := NewSession(ws, SessionDeps{Cache: mapCache{}})
	require.NoError(t, err)

	var p *entities.DensityProfile
	require.NotPanics(t, func() { p = s.Profile() })
	assert.LessOrEqual(t, p.Len(), domainsvc.MaxDepthSamples)
	assert.Len(t, p.Layers, 3)
	for _, v := range p.Rho {
		assert.False(t, math.IsNaN(v))
	}
}

func TestSession_AddLayerRejectsNonFinite(t *testing.T) {
	s := newTestSession(t, SessionDeps{})
	thickness := math.Inf(1)
	_, err := s.AddLayer(dto.AddLayerRequest{Thickness: &thickness})
	require.Error(t, err)
	assert.Equal(t, 2, s.Stack().Len())
}

func TestSession_AnalyzeWithoutData(t *testing.T) {
	p := newTestPipeline(new(MockInference), new(MockRefinement), nil)
	s := newTestSession(t, SessionDeps{Pipeline: p})

	_, err := s.AnalyzeAndWait(context.Background(), dto.AnalyzeRequest{})
	var noData *apperrors.NoDataError
	require.ErrorAs(t, err, &noData)
	assert.Equal(t, "test", noData.Workspace)
	assert.Equal(t, values.RunStateIdle, s.Result().State)
}

func TestSession_AnalyzeAndWait(t *testing.T) {
	inf := new(MockInference)
	ref := new(MockRefinement)
	p := newTestPipeline(inf, ref, nil)
	s := newTestSession(t, SessionDeps{Pipeline: p})

	_, err := s.Import(strings.NewReader(twoThetaScan+"2.5 0.0005\n3.0 0.0002\n3.5 0.0001\n4.0 0.00005\n"), dto.ImportRequest{Unit: values.AxisTwoTheta})
	require.NoError(t, err)
	measured := s.Measured()
	stack := s.Stack()
	inf.On("Infer", mock.Anything, mock.Anything).Return(&ports.Candidate{Stack: stack, Curve: measured.Curve}, nil)
	ref.On("Refine", mock.Anything, mock.Anything).Return(&ports.Refinement{Stack: stack, Curve: measured.Curve}, nil)

	r, err := s.AnalyzeAndWait(context.Background(), dto.AnalyzeRequest{})
	require.NoError(t, err)
	assert.Equal(t, values.RunStateSucceeded, r.State)
	assert.Equal(t, 100.0, r.Metrics.FOM)
	assert.Same(t, r, s.Result())
}

func TestSession_Save(t *testing.T) {
	repo := new(MockWorkspaceRepository)
	s := newTestSession(t, SessionDeps{Repository: repo})

	repo.On("Save", mock.Anything, mock.MatchedBy(func(ws *entities.Workspace) bool {
		return ws.Name == "test" && ws.Stack.Len() == 2
	})).Return(nil).Once()

	require.NoError(t, s.Save(context.Background()))
	repo.AssertExpectations(t)

	noRepo := newTestSession(t, SessionDeps{})
	assert.Error(t, noRepo.Save(context.Background()))
}

func TestNewSession_ReconvertsRawData(t *testing.T) {
	ws := entities.NewWorkspace("stored")
	ws.Raw = &entities.RawData{X: []float64{1, 2}, Y: []float64{1, 0.1}}

	s, err := NewSession(ws, SessionDeps{})
	require.NoError(t, err)
	m := s.Measured()
	require.NotNil(t, m)
	assert.Equal(t, values.AxisTwoTheta, m.Unit)
	assert.Len(t, m.X, 2)
}
