package evaluator

import "github.com/Makar-FP/plus-smart-home-tech/internal/model"

// conditionSatisfied checks one condition against a sensor's current state.
// A condition aimed at the wrong payload variant is unsatisfied, not an
// error: the scenario simply does not fire.
func conditionSatisfied(cond model.Condition, state model.SensorState) bool {
	switch cond.Type {
	case model.ConditionSwitch:
		payload, ok := state.Payload.(model.SwitchPayload)
		return ok && payload.State == (cond.Value == 1)
	case model.ConditionMotion:
		payload, ok := state.Payload.(model.MotionPayload)
		return ok && payload.Motion == (cond.Value == 1)
	case model.ConditionLuminosity:
		payload, ok := state.Payload.(model.LightPayload)
		return ok && compareNumeric(cond.Operation, cond.Value, payload.Luminosity)
	case model.ConditionTemperature:
		switch payload := state.Payload.(type) {
		case model.TemperaturePayload:
			return compareNumeric(cond.Operation, cond.Value, payload.TemperatureC)
		case model.ClimatePayload:
			return compareNumeric(cond.Operation, cond.Value, payload.TemperatureC)
		default:
			return false
		}
	case model.ConditionCO2Level:
		payload, ok := state.Payload.(model.ClimatePayload)
		return ok && compareNumeric(cond.Operation, cond.Value, payload.CO2Level)
	case model.ConditionHumidity:
		payload, ok := state.Payload.(model.ClimatePayload)
		return ok && compareNumeric(cond.Operation, cond.Value, payload.Humidity)
	default:
		return false
	}
}

func compareNumeric(op model.ConditionOperation, expected, actual int) bool {
	switch op {
	case model.OperationEquals:
		return actual == expected
	case model.OperationGreaterThan:
		return actual > expected
	case model.OperationLowerThan:
		return actual < expected
	default:
		return false
	}
}
