package entity

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

const weaponRadius = 0.2

// NewWeapon creates a weapon lying loose at pos.
func NewWeapon(w *ecs.World, profile component.WeaponProfile, pos mgl64.Vec3) (ecs.Entity, error) {
	if err := profile.Validate(); err != nil {
		return 0, fmt.Errorf("weapon: %w", err)
	}
	entity := ecs.CreateEntity(w)

	if err := ecs.Add(w, entity, component.TransformComponent.Kind(), &component.Transform{Position: pos}); err != nil {
		return 0, fmt.Errorf("weapon: add transform: %w", err)
	}
	if err := ecs.Add(w, entity, component.WeaponComponent.Kind(), &component.Weapon{Profile: profile}); err != nil {
		return 0, fmt.Errorf("weapon: add weapon: %w", err)
	}
	surface := component.SurfaceMetal
	if err := ecs.Add(w, entity, component.SurfaceComponent.Kind(), &surface); err != nil {
		return 0, fmt.Errorf("weapon: add surface: %w", err)
	}
	if err := ecs.Add(w, entity, component.ColliderComponent.Kind(), &component.Collider{
		Layer:  common.LayerWeapon,
		Radius: weaponRadius,
	}); err != nil {
		return 0, fmt.Errorf("weapon: add collider: %w", err)
	}
	return entity, nil
}

// NewHeldWeapon creates a weapon already in actor's hands.
func NewHeldWeapon(w *ecs.World, profile component.WeaponProfile, actor ecs.Entity) (ecs.Entity, error) {
	pos := mgl64.Vec3{}
	if t, ok := ecs.Get(w, actor, component.TransformComponent.Kind()); ok {
		pos = t.Position.Add(common.Up)
	}
	weapon, err := NewWeapon(w, profile, pos)
	if err != nil {
		return 0, err
	}

	slot, ok := ecs.Get(w, actor, component.WeaponSlotComponent.Kind())
	if !ok {
		slot = &component.WeaponSlot{}
		if err := ecs.Add(w, actor, component.WeaponSlotComponent.Kind(), slot); err != nil {
			return 0, fmt.Errorf("weapon: add weapon slot: %w", err)
		}
	}
	if slot.Weapon != 0 {
		return 0, fmt.Errorf("weapon: actor %s is already armed", actor)
	}
	wp, _ := ecs.Get(w, weapon, component.WeaponComponent.Kind())
	wp.Owner = uint64(actor)
	slot.Weapon = uint64(weapon)
	if pw := w.PhysicsWorld(); pw != nil {
		pw.Attach(weapon)
	}
	return weapon, nil
}
