package store

import (
	"strconv"

	"spexregister/models"
)

// indexDocument flattens a spexare into the shape the mapping expects.
// Empty values are left out so that they neither match nor show up in facets.
func indexDocument(s *models.Spexare) map[string]any {
	doc := map[string]any{}
	putString(doc, "firstName", s.FirstName)
	putString(doc, "lastName", s.LastName)
	putString(doc, "nickName", s.NickName)
	putString(doc, "socialSecurityNumber", s.SocialSecurityNumber)
	putString(doc, "graduation", s.Graduation)
	putString(doc, "comment", s.Comment)

	activities := make([]any, 0, len(s.Activities))
	for _, a := range s.Activities {
		activity := map[string]any{}
		if a.SpexActivity != nil {
			spex := a.SpexActivity.Spex
			details := map[string]any{}
			putString(details, "title", spex.Details.Title)
			if category := named(spex.Details.Category.Name); category != nil {
				details["category"] = category
			}
			spexDoc := map[string]any{"details": details}
			putString(spexDoc, "year", spex.Year)
			activity["spexActivity"] = map[string]any{"spex": spexDoc}
		}

		tasks := make([]any, 0, len(a.TaskActivities))
		for _, ta := range a.TaskActivities {
			task := map[string]any{}
			putString(task, "name", ta.Task.Name)
			if category := named(ta.Task.Category.Name); category != nil {
				task["category"] = category
			}

			actors := make([]any, 0, len(ta.Actors))
			for _, actor := range ta.Actors {
				actorDoc := map[string]any{}
				putString(actorDoc, "role", actor.Role)
				if actor.Vocal != nil && actor.Vocal.ID != "" {
					actorDoc["vocal"] = map[string]any{"id": actor.Vocal.ID}
				}
				actors = append(actors, actorDoc)
			}
			tasks = append(tasks, map[string]any{"task": task, "actors": actors})
		}
		if len(tasks) > 0 {
			activity["taskActivities"] = tasks
		}
		activities = append(activities, activity)
	}
	putSlice(doc, "activities", activities)

	tags := make([]any, 0, len(s.Tags))
	for _, t := range s.Tags {
		if tag := named(t.Name); tag != nil {
			tags = append(tags, tag)
		}
	}
	putSlice(doc, "tags", tags)

	addresses := make([]any, 0, len(s.Addresses))
	for _, a := range s.Addresses {
		address := map[string]any{}
		putString(address, "streetAddress", a.StreetAddress)
		putString(address, "postalCode", a.PostalCode)
		putString(address, "city", a.City)
		putString(address, "country", a.Country)
		putString(address, "phone", a.Phone)
		putString(address, "phoneMobile", a.PhoneMobile)
		putString(address, "emailAddress", a.EmailAddress)
		addresses = append(addresses, address)
	}
	putSlice(doc, "addresses", addresses)

	memberships := make([]any, 0, len(s.Memberships))
	for _, m := range s.Memberships {
		membership := map[string]any{"type": typeRef(m.Type)}
		putString(membership, "year", m.Year)
		memberships = append(memberships, membership)
	}
	putSlice(doc, "memberships", memberships)

	consents := make([]any, 0, len(s.Consents))
	for _, c := range s.Consents {
		consents = append(consents, map[string]any{
			"value": strconv.FormatBool(c.Value),
			"type":  typeRef(c.Type),
		})
	}
	putSlice(doc, "consents", consents)

	toggles := make([]any, 0, len(s.Toggles))
	for _, t := range s.Toggles {
		toggles = append(toggles, map[string]any{
			"value": strconv.FormatBool(t.Value),
			"type":  typeRef(t.Type),
		})
	}
	putSlice(doc, "toggles", toggles)

	return doc
}

func putString(doc map[string]any, key, value string) {
	if value != "" {
		doc[key] = value
	}
}

func putSlice(doc map[string]any, key string, values []any) {
	if len(values) > 0 {
		doc[key] = values
	}
}

func named(name string) map[string]any {
	if name == "" {
		return nil
	}
	return map[string]any{"name": name}
}

func typeRef(t models.Type) map[string]any {
	ref := map[string]any{}
	putString(ref, "id", t.ID)
	return ref
}
