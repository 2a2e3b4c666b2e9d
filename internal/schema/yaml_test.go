package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const wemoServicesYAML = `set_humidity:
  name: Set humidity
  description: Set the target relative humidity of a WeMo humidifier.
  target:
    entity:
      integration: wemo
      domain: fan
  fields:
    target_humidity:
      name: Target humidity
      description: Desired relative humidity.
      required: true
      selector:
        number:
          min: 0
          max: 100
          step: 5
          unit_of_measurement: '%'
reset_filter_life:
  name: Reset filter life
  description: Reset the humidifier filter life counter to 100%.
  target:
    entity:
      integration: wemo
      domain: fan
crockpot_update_settings:
  name: Update crockpot settings
  description: Update the cooking mode and time of a WeMo crockpot.
  target:
    entity:
      integration: wemo
      domain: switch
  fields:
    mode:
      description: Cooking mode to switch the crockpot to.
      example: '50'
    time:
      description: Cooking time, in minutes.
      example: '300'
`

func TestLoad(t *testing.T) {
	table, err := Load([]byte(wemoServicesYAML))
	require.NoError(t, err)

	defs := table.List()
	require.Len(t, defs, 3)
	assert.Equal(t, ServiceSetHumidity, defs[0].Service)
	assert.Equal(t, ServiceResetFilterLife, defs[1].Service)
	assert.Equal(t, ServiceCrockpotUpdateSettings, defs[2].Service)

	humidity, err := table.Get(ServiceSetHumidity)
	require.NoError(t, err)
	require.Len(t, humidity.Fields, 1)
	f := humidity.Fields[0]
	assert.True(t, f.Required)
	require.NotNil(t, f.Selector)
	assert.Equal(t, NumberSelector{Min: 0, Max: 100, Step: 5, Unit: "%"}, *f.Selector)

	crockpot, err := table.Get(ServiceCrockpotUpdateSettings)
	require.NoError(t, err)
	assert.Equal(t, "switch", crockpot.Target.Domain)
	require.Len(t, crockpot.Fields, 2)
	assert.Equal(t, "mode", crockpot.Fields[0].Key)
	assert.Equal(t, "50", crockpot.Fields[0].Example)
	assert.Equal(t, "time", crockpot.Fields[1].Key)
	assert.Equal(t, "300", crockpot.Fields[1].Example)
}

func TestLoad_FieldOrderPreserved(t *testing.T) {
	// Field order carries UI rendering order, so swapping the source
	// order must swap the decoded order.
	doc := `crockpot_update_settings:
  target:
    entity:
      integration: wemo
      domain: switch
  fields:
    time:
      example: '300'
    mode:
      example: '50'
`
	table, err := Load([]byte(doc))
	require.NoError(t, err)

	d, err := table.Get(ServiceCrockpotUpdateSettings)
	require.NoError(t, err)
	require.Len(t, d.Fields, 2)
	assert.Equal(t, "time", d.Fields[0].Key)
	assert.Equal(t, "mode", d.Fields[1].Key)
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "top level sequence", doc: "- set_humidity\n"},
		{name: "fields not a mapping", doc: "set_humidity:\n  fields: [a, b]\n"},
		{name: "not yaml", doc: ":\t{"},
		{
			name: "duplicate service",
			doc:  "set_humidity:\n  target:\n    entity: {integration: wemo, domain: fan}\nset_humidity:\n  target:\n    entity: {integration: wemo, domain: fan}\n",
		},
		{
			name: "selector step zero",
			doc:  "set_humidity:\n  fields:\n    target_humidity:\n      selector:\n        number: {min: 0, max: 100, step: 0}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestDump_RoundTrip(t *testing.T) {
	data, err := Dump(Wemo())
	require.NoError(t, err)

	reloaded, err := Load(data)
	require.NoError(t, err)

	require.Equal(t, len(Wemo().List()), len(reloaded.List()))
	for i, d := range Wemo().List() {
		assert.Equal(t, d, reloaded.List()[i])
	}
}

func TestDump_Shape(t *testing.T) {
	data, err := Dump(Wemo())
	require.NoError(t, err)

	// The platform parses the document by fixed key names, so check
	// the raw shape rather than going through our own decoder.
	var raw yaml.Node
	require.NoError(t, yaml.Unmarshal(data, &raw))
	require.Len(t, raw.Content, 1)
	root := raw.Content[0]
	require.Equal(t, yaml.MappingNode, root.Kind)

	assert.Equal(t, ServiceSetHumidity, root.Content[0].Value)
	assert.Equal(t, ServiceResetFilterLife, root.Content[2].Value)
	assert.Equal(t, ServiceCrockpotUpdateSettings, root.Content[4].Value)

	humidity := root.Content[1]
	target := childNode(humidity, "target")
	require.NotNil(t, target)
	entity := childNode(target, "entity")
	require.NotNil(t, entity)
	require.NotNil(t, childNode(entity, "integration"))
	assert.Equal(t, "wemo", childNode(entity, "integration").Value)
	assert.Equal(t, "fan", childNode(entity, "domain").Value)

	fields := childNode(humidity, "fields")
	require.NotNil(t, fields)
	field := childNode(fields, "target_humidity")
	require.NotNil(t, field)
	selector := childNode(field, "selector")
	require.NotNil(t, selector)
	number := childNode(selector, "number")
	require.NotNil(t, number)
	for _, key := range []string{"min", "max", "step", "unit_of_measurement"} {
		assert.NotNil(t, childNode(number, key), key)
	}

	// Services without fields omit the key entirely.
	filter := root.Content[3]
	assert.Nil(t, childNode(filter, "fields"))
}
