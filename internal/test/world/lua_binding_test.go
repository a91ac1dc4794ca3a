//go:build scenario

package world

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scenarioTypeName = "scenario"

// Scenario is a scripted world timeline: seed steps, clock advances, and
// expectations, executed in order against a fresh world.
type Scenario struct {
	Name  string
	Steps []Step
}

type Step struct {
	Kind string
	Args map[string]any
}

func loadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerScenarioType(state)
	registerScenarioConstructor(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerScenarioType(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerScenarioConstructor(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	scenario := &Scenario{Name: name}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "location", Function: scenarioLocation},
	{Name: "player", Function: scenarioPlayer},
	{Name: "effect", Function: scenarioEffect},
	{Name: "travel", Function: scenarioTravel},
	{Name: "advance", Function: scenarioAdvance},
	{Name: "tick", Function: scenarioTick},
	{Name: "boss_cycle", Function: scenarioBossCycle},
	{Name: "defeat_boss", Function: scenarioDefeatBoss},
	{Name: "expect_vitals", Function: scenarioExpectVitals},
	{Name: "expect_location", Function: scenarioExpectLocation},
	{Name: "expect_in_transit", Function: scenarioExpectInTransit},
	{Name: "expect_active_encounters", Function: scenarioExpectActiveEncounters},
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		lua.Errorf(state, "expected scenario receiver")
	}
	return scenario
}

func appendStep(scenario *Scenario, kind string, args map[string]any) {
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: args})
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	result := map[string]any{}
	state.PushNil()
	for state.Next(index) {
		key, keyOK := state.ToString(-2)
		if keyOK {
			switch state.TypeOf(-1) {
			case lua.TypeNumber:
				value, _ := state.ToNumber(-1)
				result[key] = value
			case lua.TypeBoolean:
				result[key] = state.ToBoolean(-1)
			default:
				value, _ := state.ToString(-1)
				result[key] = value
			}
		}
		state.Pop(1)
	}
	return result
}

func scenarioLocation(state *lua.State) int {
	scenario := checkScenario(state)
	id := lua.CheckString(state, 2)
	opts := optionalTable(state, 3)
	data := map[string]any{"id": id}
	for key, value := range opts {
		data[key] = value
	}
	appendStep(scenario, "location", data)
	return 0
}

func scenarioPlayer(state *lua.State) int {
	scenario := checkScenario(state)
	userID := lua.CheckString(state, 2)
	opts := optionalTable(state, 3)
	data := map[string]any{"user_id": userID}
	for key, value := range opts {
		data[key] = value
	}
	appendStep(scenario, "player", data)
	return 0
}

func scenarioEffect(state *lua.State) int {
	scenario := checkScenario(state)
	userID := lua.CheckString(state, 2)
	effectID := lua.CheckString(state, 3)
	minutes := lua.CheckNumber(state, 4)
	appendStep(scenario, "effect", map[string]any{
		"user_id": userID, "effect_id": effectID, "minutes": minutes,
	})
	return 0
}

func scenarioTravel(state *lua.State) int {
	scenario := checkScenario(state)
	userID := lua.CheckString(state, 2)
	to := lua.CheckString(state, 3)
	minutes := lua.CheckNumber(state, 4)
	appendStep(scenario, "travel", map[string]any{
		"user_id": userID, "to": to, "minutes": minutes,
	})
	return 0
}

func scenarioAdvance(state *lua.State) int {
	scenario := checkScenario(state)
	minutes := lua.CheckNumber(state, 2)
	appendStep(scenario, "advance", map[string]any{"minutes": minutes})
	return 0
}

func scenarioTick(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "tick", nil)
	return 0
}

func scenarioBossCycle(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "boss_cycle", nil)
	return 0
}

func scenarioDefeatBoss(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "defeat_boss", nil)
	return 0
}

func scenarioExpectVitals(state *lua.State) int {
	scenario := checkScenario(state)
	userID := lua.CheckString(state, 2)
	health := lua.CheckNumber(state, 3)
	stamina := lua.CheckNumber(state, 4)
	appendStep(scenario, "expect_vitals", map[string]any{
		"user_id": userID, "health": health, "stamina": stamina,
	})
	return 0
}

func scenarioExpectLocation(state *lua.State) int {
	scenario := checkScenario(state)
	userID := lua.CheckString(state, 2)
	locationID := lua.CheckString(state, 3)
	appendStep(scenario, "expect_location", map[string]any{
		"user_id": userID, "location_id": locationID,
	})
	return 0
}

func scenarioExpectInTransit(state *lua.State) int {
	scenario := checkScenario(state)
	userID := lua.CheckString(state, 2)
	expected := state.ToBoolean(3)
	appendStep(scenario, "expect_in_transit", map[string]any{
		"user_id": userID, "expected": expected,
	})
	return 0
}

func scenarioExpectActiveEncounters(state *lua.State) int {
	scenario := checkScenario(state)
	count := lua.CheckNumber(state, 2)
	appendStep(scenario, "expect_active_encounters", map[string]any{"count": count})
	return 0
}
