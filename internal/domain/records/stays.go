package records

// MergeStays collapses the encounter hierarchy into one record per
// physical stay. Each facility contact becomes the representative; the
// location assignments of every department and supply contact resolved
// to it are folded in, so ward membership recorded on a sub-contact is
// visible on the stay. Encounters that could not be resolved to a
// facility contact are passed through unchanged (typically outpatient
// contacts without sub-records).
func MergeStays(encounters []*Encounter, facilityByEncounter map[string]string) []*Encounter {
	merged := make(map[string]*Encounter)
	var order []string

	for _, enc := range encounters {
		facilityID, ok := facilityByEncounter[enc.ID]
		if !ok {
			facilityID = enc.ID
		}
		if enc.ID == facilityID {
			if existing, seen := merged[facilityID]; seen {
				// Locations collected from sub-contacts before the facility
				// record itself was reached.
				stay := *enc
				stay.FacilityContactID = facilityID
				stay.Locations = append(append([]LocationAssignment{}, enc.Locations...), existing.Locations...)
				merged[facilityID] = &stay
			} else {
				stay := *enc
				stay.FacilityContactID = facilityID
				stay.Locations = append([]LocationAssignment{}, enc.Locations...)
				merged[facilityID] = &stay
				order = append(order, facilityID)
			}
			continue
		}
		if existing, seen := merged[facilityID]; seen {
			existing.Locations = append(existing.Locations, enc.Locations...)
		} else {
			merged[facilityID] = &Encounter{
				ID:                facilityID,
				FacilityContactID: facilityID,
				Locations:         append([]LocationAssignment{}, enc.Locations...),
			}
			order = append(order, facilityID)
		}
	}

	out := make([]*Encounter, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}
	return out
}
