package models

// DeepMerge 将 updates 递归合并进 base 的副本并返回。
// 两侧同键且均为嵌套对象时递归合并，否则以 updates 一侧为准（叶子级 last-write-wins）。
// 各阶段借此在不覆盖彼此写入的前提下分别追加 resources、修改 legacy 子结构。
func DeepMerge(base, updates JSONMap) JSONMap {
	merged := deepCopyMap(base)
	for key, val := range updates {
		uv, uok := asMap(val)
		bv, bok := asMap(merged[key])
		if uok && bok {
			merged[key] = DeepMerge(bv, uv)
			continue
		}
		merged[key] = deepCopyValue(val)
	}
	return merged
}

func asMap(v interface{}) (JSONMap, bool) {
	if v == nil {
		return nil, false
	}
	m, ok := v.(map[string]interface{})
	return m, ok
}

func deepCopyMap(m JSONMap) JSONMap {
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

// DefaultParameters 规范化参数 schema 的零值形态。
func DefaultParameters() JSONMap {
	return JSONMap{
		"shot": JSONMap{
			"style":        "",
			"text_llm":     "",
			"image_llm":    "",
			"generate_tts": false,
			"shot_count":   0,
			"image_width":  0,
			"image_height": 0,
		},
		"video": JSONMap{
			"format":             "",
			"resolution":         "",
			"fps":                "",
			"transition_effects": "",
		},
	}
}

// DefaultResult 规范化结果信封的零值形态，legacy 子结构兼容旧版任务结果。
func DefaultResult() JSONMap {
	return JSONMap{
		"resource_type": "",
		"resource_id":   "",
		"resource_url":  "",
		"resources":     []interface{}{},
		"legacy": JSONMap{
			"task_shots": JSONMap{
				"generated_shots": []interface{}{},
				"total_shots":     0,
				"total_time":      0.0,
			},
			"task_audio": JSONMap{
				"generated_audios": []interface{}{},
				"total_audios":     0,
				"total_time":       0.0,
			},
			"task_video": JSONMap{
				"path":       "",
				"duration":   "",
				"fps":        "",
				"resolution": "",
				"format":     "",
				"total_time": "",
				"clips":      []interface{}{},
			},
		},
	}
}

// NormalizeParameters 把任意（可能不完整的）参数合并到规范 schema 上。
// 对已规范化的输入是恒等变换。
func NormalizeParameters(params JSONMap) JSONMap {
	if params == nil {
		return DefaultParameters()
	}
	return DeepMerge(DefaultParameters(), params)
}

// NormalizeResult 同上，并保证 resources / legacy 两个必要键存在。
func NormalizeResult(result JSONMap) JSONMap {
	base := DefaultResult()
	if result == nil {
		return base
	}
	merged := DeepMerge(base, result)
	if _, ok := merged["resources"]; !ok {
		merged["resources"] = []interface{}{}
	}
	if _, ok := merged["legacy"]; !ok {
		merged["legacy"] = DefaultResult()["legacy"]
	}
	return merged
}
