package roster

import "kaoban/internal/gateway"

// DuplicateGroup は同じ名前を持つ顔データのまとまり
type DuplicateGroup struct {
	Name    string   `json:"name"`
	Count   int      `json:"count"`
	FaceIDs []string `json:"face_ids"`
}

// Duplicates は名前でグループ化し、2件以上あるものを返す
// 順序は各名前が最初に現れた位置の順
func Duplicates(faces []gateway.FaceRecord) []DuplicateGroup {
	index := make(map[string]int)
	var groups []DuplicateGroup

	for _, f := range faces {
		i, ok := index[f.Name]
		if !ok {
			i = len(groups)
			index[f.Name] = i
			groups = append(groups, DuplicateGroup{Name: f.Name})
		}
		groups[i].Count++
		groups[i].FaceIDs = append(groups[i].FaceIDs, f.FaceID)
	}

	result := make([]DuplicateGroup, 0)
	for _, g := range groups {
		if g.Count > 1 {
			result = append(result, g)
		}
	}
	return result
}

// DuplicateNames は重複している名前だけを返す
func DuplicateNames(faces []gateway.FaceRecord) []string {
	groups := Duplicates(faces)
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names
}

// IsDuplicate は name が重複しているか返す
func IsDuplicate(faces []gateway.FaceRecord, name string) bool {
	count := 0
	for _, f := range faces {
		if f.Name == name {
			count++
			if count > 1 {
				return true
			}
		}
	}
	return false
}
